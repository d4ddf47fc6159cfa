package engine

import "sync"

// senderLocks hands out one mutex per sender id and forgets it once no
// goroutine holds or waits on it.
type senderLocks struct {
	mu    sync.Mutex
	locks map[string]*senderLock
}

type senderLock struct {
	mu   sync.Mutex
	refs int
}

func newSenderLocks() *senderLocks {
	return &senderLocks{locks: make(map[string]*senderLock)}
}

func (l *senderLocks) lock(id string) (unlock func()) {
	l.mu.Lock()
	sl, ok := l.locks[id]
	if !ok {
		sl = &senderLock{}
		l.locks[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// recentIDs remembers the last n ids added.
type recentIDs struct {
	mu    sync.Mutex
	set   map[string]struct{}
	order []string
	limit int
}

func newRecentIDs(limit int) *recentIDs {
	return &recentIDs{
		set:   make(map[string]struct{}, limit),
		order: make([]string, 0, limit),
		limit: limit,
	}
}

func (r *recentIDs) contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.set[id]
	return ok
}

func (r *recentIDs) add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.set[id]; ok {
		return
	}
	if len(r.order) == r.limit {
		delete(r.set, r.order[0])
		r.order = r.order[1:]
	}
	r.order = append(r.order, id)
	r.set[id] = struct{}{}
}
