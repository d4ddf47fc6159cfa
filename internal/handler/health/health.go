// Package health serves the liveness report of the bot's dependencies:
// the progress store and the outbound message queue.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

const checkTimeout = 3 * time.Second

// Checker verifies that a dependency is usable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a plain function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

type Handler struct {
	checks map[string]Checker
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, checks map[string]Checker) *Handler {
	return &Handler{checks: checks, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

// Result is one dependency's outcome.
type Result struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latencyMs"`
}

// Response is the body of GET /healthz, keyed by dependency name.
type Response map[string]Result

// Run executes every check concurrently and reports whether all passed.
func (h *Handler) Run(ctx context.Context) (Response, bool) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
		results = make(Response, len(h.checks))
	)
	for name, c := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := c.Check(ctx)
			res := Result{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				h.logger.Error("health check failed", "name", name, "error", err)
				res.Status = "error"
			}

			mu.Lock()
			defer mu.Unlock()
			results[name] = res
			if err != nil {
				healthy = false
			}
		}()
	}
	wg.Wait()
	return results, healthy
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	results, healthy := h.Run(r.Context())

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(results)
}
