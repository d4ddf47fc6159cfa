package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/scavengerbot/internal/hunt"
	"github.com/playperu/scavengerbot/internal/messenger"
	"github.com/playperu/scavengerbot/internal/progress"
)

const alice = "1001"

type recordingSender struct {
	mu   sync.Mutex
	sent []messenger.Message
	err  error
}

func (s *recordingSender) Deliver(_ context.Context, msg messenger.Message) messenger.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return messenger.Result{RecipientID: msg.Recipient.ID, Err: s.err}
}

func (s *recordingSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, m := range s.sent {
		out[i] = m.Message.Text
	}
	return out
}

func (s *recordingSender) last() messenger.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
}

type failingStore struct{ progress.Store }

func (failingStore) Put(context.Context, string, hunt.Progress) error {
	return errors.New("disk full")
}

func testCatalog() hunt.CityCatalog {
	return hunt.CityCatalog{
		hunt.CitySanFrancisco: {
			{ID: 1, Name: "Golden Gate Park", Coordinates: hunt.Coordinate{Lat: 37.7694, Long: -122.4862}, Clues: []string{"Clue 1", "Clue 2", "Clue 3"}},
			{ID: 2, Name: "Presidio Park", Coordinates: hunt.Coordinate{Lat: 37.7989, Long: -122.4662}, Clues: []string{"Clue 1", "Clue 2", "Clue 3"}},
		},
		hunt.CityBoston: {
			{ID: 3, Name: "Boston Common", Coordinates: hunt.Coordinate{Lat: 42.3550, Long: -71.0656}, Clues: []string{"Look up"}},
		},
	}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *progress.MemoryStore, *recordingSender) {
	t.Helper()
	store := progress.NewMemoryStore()
	sender := &recordingSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(testCatalog(), store, sender, logger, opts...), store, sender
}

func textEvent(sender, mid, text string) messenger.Event {
	return messenger.Event{
		Sender:  messenger.Party{ID: sender},
		Message: &messenger.InboundMessage{MID: mid, Text: text},
	}
}

func quickReplyEvent(sender, mid string, p hunt.Payload) messenger.Event {
	return messenger.Event{
		Sender: messenger.Party{ID: sender},
		Message: &messenger.InboundMessage{
			MID:        mid,
			Text:       p.String(),
			QuickReply: &messenger.QuickReplyPayload{Payload: p.String()},
		},
	}
}

func locationEvent(sender, mid string, c hunt.Coordinate) messenger.Event {
	return messenger.Event{
		Sender: messenger.Party{ID: sender},
		Message: &messenger.InboundMessage{
			MID: mid,
			Attachments: []messenger.InboundAttachment{{
				Type:    "location",
				Payload: messenger.AttachmentPayload{Coordinates: &c},
			}},
		},
	}
}

func seed(t *testing.T, store progress.Store, p hunt.Progress) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), alice, p))
}

func stored(t *testing.T, store progress.Store) hunt.Progress {
	t.Helper()
	p, err := store.Get(context.Background(), alice)
	require.NoError(t, err)
	return p
}

func TestFreshUserGetsCityPrompt(t *testing.T) {
	e, store, sender := newTestEngine(t)

	require.NoError(t, e.Handle(context.Background(), textEvent(alice, "m1", "hello")))

	require.Len(t, sender.sent, 1)
	msg := sender.last()
	assert.Equal(t, alice, msg.Recipient.ID)
	assert.Equal(t, "I need to know which city you're in to get started. Which city are you located in?", msg.Message.Text)
	require.Len(t, msg.Message.QuickReplies, 4)
	assert.Equal(t, "SAN_FRANCISCO", msg.Message.QuickReplies[0].Payload)
	assert.Equal(t, "OTHER", msg.Message.QuickReplies[3].Payload)
	assert.Equal(t, hunt.Progress{}, stored(t, store))
}

func TestGetStartedPostback(t *testing.T) {
	e, _, sender := newTestEngine(t)

	ev := messenger.Event{
		Sender:   messenger.Party{ID: alice},
		Postback: &messenger.Postback{Payload: hunt.PostbackGetStarted},
	}
	require.NoError(t, e.Handle(context.Background(), ev))

	assert.Equal(t, []string{"Which city are you located in?"}, sender.texts())
}

func TestCitySelection(t *testing.T) {
	e, store, sender := newTestEngine(t)

	require.NoError(t, e.Handle(context.Background(), quickReplyEvent(alice, "m1", hunt.PayloadBoston)))

	assert.Equal(t, hunt.CityBoston, stored(t, store).City)
	msg := sender.last()
	require.Len(t, msg.Message.QuickReplies, 1)
	assert.Equal(t, messenger.ContentTypeLocation, msg.Message.QuickReplies[0].ContentType)
}

func TestOtherCityIsExcluded(t *testing.T) {
	e, store, sender := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Handle(ctx, quickReplyEvent(alice, "m1", hunt.PayloadOther)))
	assert.Equal(t, hunt.CityOther, stored(t, store).City)
	assert.Equal(t, textNotActiveCity, sender.last().Message.Text)

	require.NoError(t, e.Handle(ctx, textEvent(alice, "m2", "anything?")))
	assert.Equal(t, textExcluded, sender.last().Message.Text)
}

func TestLocationResolvesNearestPrize(t *testing.T) {
	e, store, sender := newTestEngine(t)
	seed(t, store, hunt.Progress{City: hunt.CitySanFrancisco})

	require.NoError(t, e.Handle(context.Background(), locationEvent(alice, "m1", hunt.Coordinate{Lat: 37.80, Long: -122.46})))

	assert.Equal(t, "Presidio Park", stored(t, store).Location)
	assert.Equal(t,
		"Head to Presidio Park and let me know when you arrive so I can give you a set of clues.",
		sender.last().Message.Text)
}

func TestLocationUsesFixedCityByDefault(t *testing.T) {
	e, store, _ := newTestEngine(t)
	seed(t, store, hunt.Progress{City: hunt.CityBoston})

	require.NoError(t, e.Handle(context.Background(), locationEvent(alice, "m1", hunt.Coordinate{Lat: 42.355, Long: -71.065})))

	assert.Equal(t, "Presidio Park", stored(t, store).Location)
}

func TestLocationUsesSelectedCityWhenScoped(t *testing.T) {
	e, store, _ := newTestEngine(t, WithResolveCity(hunt.CitySanFrancisco, ScopeSelected))
	seed(t, store, hunt.Progress{City: hunt.CityBoston})

	require.NoError(t, e.Handle(context.Background(), locationEvent(alice, "m1", hunt.Coordinate{Lat: 42.355, Long: -71.065})))

	p := stored(t, store)
	assert.Equal(t, "Boston Common", p.Location)
	assert.Equal(t, hunt.StateAwaitingFirstClue, e.machine.State(p))
}

func TestLocationWithoutPrizesInCity(t *testing.T) {
	e, store, sender := newTestEngine(t, WithResolveCity(hunt.CitySanDiego, ScopeFixed))
	seed(t, store, hunt.Progress{City: hunt.CitySanDiego})

	require.NoError(t, e.Handle(context.Background(), locationEvent(alice, "m1", hunt.Coordinate{Lat: 32.7, Long: -117.1})))

	assert.Empty(t, stored(t, store).Location)
	assert.Equal(t, textNoLocations, sender.last().Message.Text)
}

func TestClueSequence(t *testing.T) {
	e, store, sender := newTestEngine(t)
	ctx := context.Background()
	seed(t, store, hunt.Progress{City: hunt.CitySanFrancisco, Location: "Presidio Park"})

	require.NoError(t, e.Handle(ctx, textEvent(alice, "m0", "I'm here")))
	assert.Equal(t, textFirstClueAsk, sender.last().Message.Text)

	for i, mid := range []string{"m1", "m2", "m3"} {
		require.NoError(t, e.Handle(ctx, quickReplyEvent(alice, mid, hunt.PayloadReadyForClue)))
		assert.Equal(t, i+1, stored(t, store).ClueCursor)
	}

	assert.Equal(t, []string{
		textFirstClueAsk,
		"Here's your first clue: Clue 1",
		"Here's your next clue: Clue 2",
		"Here's your last clue: Clue 3",
	}, sender.texts())

	require.NoError(t, e.Handle(ctx, textEvent(alice, "m4", "now what")))
	assert.Equal(t, textSendPhoto, sender.last().Message.Text)

	// Asking again after the last clue changes nothing.
	require.NoError(t, e.Handle(ctx, quickReplyEvent(alice, "m5", hunt.PayloadReadyForClue)))
	assert.Equal(t, 3, stored(t, store).ClueCursor)
	assert.Equal(t, textSendPhoto, sender.last().Message.Text)
}

func TestNextCluePromptBetweenClues(t *testing.T) {
	e, store, sender := newTestEngine(t)
	seed(t, store, hunt.Progress{City: hunt.CitySanFrancisco, Location: "Presidio Park", ClueCursor: 1})

	require.NoError(t, e.Handle(context.Background(), textEvent(alice, "m1", "ok")))

	msg := sender.last()
	assert.Equal(t, textNextClueAsk, msg.Message.Text)
	require.Len(t, msg.Message.QuickReplies, 2)
	assert.Equal(t, "READY_FOR_CLUE", msg.Message.QuickReplies[0].Payload)
	assert.Equal(t, "NOT_READY_FOR_CLUE", msg.Message.QuickReplies[1].Payload)
}

func TestNotReadyForClue(t *testing.T) {
	e, store, sender := newTestEngine(t)
	start := hunt.Progress{City: hunt.CitySanFrancisco, Location: "Presidio Park"}
	seed(t, store, start)

	require.NoError(t, e.Handle(context.Background(), quickReplyEvent(alice, "m1", hunt.PayloadNotReadyForClue)))

	assert.Equal(t, start, stored(t, store))
	assert.Equal(t, textNotReady, sender.last().Message.Text)
}

func TestClueBeforeLocationIsRecovered(t *testing.T) {
	var got []Transition
	e, store, sender := newTestEngine(t, WithObserver(func(tr Transition) { got = append(got, tr) }))
	seed(t, store, hunt.Progress{City: hunt.CitySanFrancisco})

	require.NoError(t, e.Handle(context.Background(), quickReplyEvent(alice, "m1", hunt.PayloadReadyForClue)))

	assert.Equal(t, 0, stored(t, store).ClueCursor)
	assert.Contains(t, sender.last().Message.Text, "Share your location")
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Fault, hunt.ErrUnresolvedLocation.Error())
}

func TestMissingCluesForStoredLocation(t *testing.T) {
	var got []Transition
	e, store, sender := newTestEngine(t, WithObserver(func(tr Transition) { got = append(got, tr) }))
	seed(t, store, hunt.Progress{City: hunt.CityBoston, Location: "Presidio Park", ClueCursor: 1})

	require.NoError(t, e.Handle(context.Background(), quickReplyEvent(alice, "m1", hunt.PayloadReadyForClue)))

	assert.Equal(t, 1, stored(t, store).ClueCursor)
	assert.Contains(t, sender.last().Message.Text, "start over")
	require.Len(t, got, 1)
	assert.Equal(t, hunt.StateUnresolvedLocation, got[0].From)
	assert.Equal(t, hunt.StateUnresolvedLocation, got[0].To)

	_, state, err := e.Progress(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, hunt.StateUnresolvedLocation, state)
	assert.Equal(t, "unresolved_location", state.String())
}

func TestFixedScopeLeavesOtherCityUnresolved(t *testing.T) {
	e, store, sender := newTestEngine(t)
	seed(t, store, hunt.Progress{City: hunt.CityBoston})

	require.NoError(t, e.Handle(context.Background(), locationEvent(alice, "m1", hunt.Coordinate{Lat: 42.355, Long: -71.065})))
	require.NoError(t, e.Handle(context.Background(), textEvent(alice, "m2", "I'm here")))

	assert.Equal(t, hunt.StateUnresolvedLocation, e.machine.State(stored(t, store)))
	assert.Contains(t, sender.last().Message.Text, "I couldn't find the clues for Presidio Park")
}

func TestStartOverRestart(t *testing.T) {
	e, store, sender := newTestEngine(t)
	ctx := context.Background()
	seed(t, store, hunt.Progress{City: hunt.CitySanFrancisco, Location: "Presidio Park", ClueCursor: 2})

	require.NoError(t, e.Handle(ctx, textEvent(alice, "m1", "I want to START OVER now")))
	msg := sender.last()
	assert.Equal(t, textRestartAsk, msg.Message.Text)
	require.Len(t, msg.Message.QuickReplies, 2)
	assert.Equal(t, "RESTART", msg.Message.QuickReplies[0].Payload)
	assert.Equal(t, "CONTINUE", msg.Message.QuickReplies[1].Payload)
	assert.Equal(t, 2, stored(t, store).ClueCursor)

	require.NoError(t, e.Handle(ctx, quickReplyEvent(alice, "m2", hunt.PayloadRestart)))
	assert.Equal(t, hunt.Progress{}, stored(t, store))
	assert.Equal(t, textRestarted, sender.last().Message.Text)
}

func TestStartOverContinue(t *testing.T) {
	e, store, sender := newTestEngine(t)
	ctx := context.Background()
	start := hunt.Progress{City: hunt.CitySanFrancisco, Location: "Presidio Park", ClueCursor: 1}
	seed(t, store, start)

	require.NoError(t, e.Handle(ctx, textEvent(alice, "m1", "start over")))
	sender.reset()
	require.NoError(t, e.Handle(ctx, quickReplyEvent(alice, "m2", hunt.PayloadContinue)))

	assert.Equal(t, start, stored(t, store))
	assert.Equal(t, []string{textContinue, textNextClueAsk}, sender.texts())
}

func TestUnknownPayload(t *testing.T) {
	e, store, sender := newTestEngine(t)
	start := hunt.Progress{City: hunt.CitySanFrancisco}
	seed(t, store, start)

	ev := messenger.Event{
		Sender: messenger.Party{ID: alice},
		Message: &messenger.InboundMessage{
			MID:        "m1",
			QuickReply: &messenger.QuickReplyPayload{Payload: "BANANA"},
		},
	}
	require.NoError(t, e.Handle(context.Background(), ev))

	assert.Equal(t, start, stored(t, store))
	assert.Equal(t, []string{textUnknown, "Which city are you located in?"}, sender.texts())
}

func TestEchoIsIgnored(t *testing.T) {
	var got []Transition
	e, store, sender := newTestEngine(t, WithObserver(func(tr Transition) { got = append(got, tr) }))

	ev := textEvent(alice, "m1", "start over")
	ev.Message.IsEcho = true
	require.NoError(t, e.Handle(context.Background(), ev))

	assert.Empty(t, sender.sent)
	assert.Empty(t, got)
	assert.Equal(t, hunt.Progress{}, stored(t, store))
}

func TestDuplicateMessageIsIgnored(t *testing.T) {
	e, store, sender := newTestEngine(t)
	ctx := context.Background()
	seed(t, store, hunt.Progress{City: hunt.CitySanFrancisco, Location: "Presidio Park"})

	ev := quickReplyEvent(alice, "m1", hunt.PayloadReadyForClue)
	require.NoError(t, e.Handle(ctx, ev))
	require.NoError(t, e.Handle(ctx, ev))

	assert.Equal(t, 1, stored(t, store).ClueCursor)
	assert.Len(t, sender.sent, 1)
}

func TestDedupeWindowForgetsOldIDs(t *testing.T) {
	e, _, sender := newTestEngine(t, WithDedupeWindow(2))
	ctx := context.Background()

	for _, mid := range []string{"m1", "m2", "m3", "m1"} {
		require.NoError(t, e.Handle(ctx, textEvent(alice, mid, "hi")))
	}
	assert.Len(t, sender.sent, 4)
}

func TestMalformedEvents(t *testing.T) {
	e, _, sender := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		ev   messenger.Event
	}{
		{"missing sender", textEvent("", "m1", "hi")},
		{"empty message", messenger.Event{Sender: messenger.Party{ID: alice}, Message: &messenger.InboundMessage{MID: "m2"}}},
		{"no payload", messenger.Event{Sender: messenger.Party{ID: alice}}},
		{"photo without coordinates", messenger.Event{
			Sender: messenger.Party{ID: alice},
			Message: &messenger.InboundMessage{
				MID:         "m3",
				Attachments: []messenger.InboundAttachment{{Type: "image", Payload: messenger.AttachmentPayload{URL: "https://example.com/p.jpg"}}},
			},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Handle(ctx, tt.ev)
			assert.ErrorIs(t, err, messenger.ErrMalformedEvent)
		})
	}
	assert.Empty(t, sender.sent)
}

func TestSaveFailureSendsNothing(t *testing.T) {
	sender := &recordingSender{}
	store := failingStore{progress.NewMemoryStore()}
	e := New(testCatalog(), store, sender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := e.Handle(context.Background(), quickReplyEvent(alice, "m1", hunt.PayloadBoston))

	require.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestDeliveryFailureStillSaves(t *testing.T) {
	e, store, sender := newTestEngine(t)
	sender.err = errors.New("send api down")

	require.NoError(t, e.Handle(context.Background(), quickReplyEvent(alice, "m1", hunt.PayloadSanFrancisco)))

	assert.Equal(t, hunt.CitySanFrancisco, stored(t, store).City)
}

func TestObserverSeesTransition(t *testing.T) {
	var got []Transition
	e, store, _ := newTestEngine(t, WithObserver(func(tr Transition) { got = append(got, tr) }))
	seed(t, store, hunt.Progress{City: hunt.CitySanFrancisco, Location: "Presidio Park"})

	require.NoError(t, e.Handle(context.Background(), quickReplyEvent(alice, "m1", hunt.PayloadReadyForClue)))

	require.Len(t, got, 1)
	tr := got[0]
	assert.Equal(t, alice, tr.SenderID)
	assert.Equal(t, "quick_reply", tr.Input)
	assert.Equal(t, hunt.StateAwaitingFirstClue, tr.From)
	assert.Equal(t, hunt.StateAwaitingNextClue, tr.To)
	assert.Equal(t, 1, tr.Replies)
	assert.Empty(t, tr.Fault)
}

func TestProgressAndReset(t *testing.T) {
	e, store, sender := newTestEngine(t)
	ctx := context.Background()
	seed(t, store, hunt.Progress{City: hunt.CitySanFrancisco, Location: "Presidio Park", ClueCursor: 3})

	p, state, err := e.Progress(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 3, p.ClueCursor)
	assert.Equal(t, hunt.StateAwaitingPrizePhoto, state)

	require.NoError(t, e.Reset(ctx, alice))
	p, state, err = e.Progress(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, hunt.Progress{}, p)
	assert.Equal(t, hunt.StateNeedCity, state)
	assert.Empty(t, sender.sent)
}

func TestConcurrentSendersAreIndependent(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.Handle(ctx, quickReplyEvent(id, "city-"+id, hunt.PayloadSanFrancisco)))
		}()
	}
	wg.Wait()

	for _, id := range []string{"a", "b", "c", "d"} {
		p, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, hunt.CitySanFrancisco, p.City)
	}
}

func TestSameSenderSerialised(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	seed(t, store, hunt.Progress{City: hunt.CitySanFrancisco, Location: "Presidio Park"})

	var wg sync.WaitGroup
	for i := range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mid := string(rune('a' + i))
			assert.NoError(t, e.Handle(ctx, quickReplyEvent(alice, mid, hunt.PayloadReadyForClue)))
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, stored(t, store).ClueCursor)
	assert.Empty(t, e.locks.locks)
}
