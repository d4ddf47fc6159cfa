// Package engine runs the scavenger hunt conversation: it turns inbound
// messaging events into transitions over a sender's stored progress and
// hands the resulting prompts to the outbound sender.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playperu/scavengerbot/internal/hunt"
	"github.com/playperu/scavengerbot/internal/messenger"
	"github.com/playperu/scavengerbot/internal/progress"
)

const defaultDedupeWindow = 1024

// Transition describes one handled event, for observers.
type Transition struct {
	SenderID string     `json:"senderId"`
	Input    string     `json:"input"`
	From     hunt.State `json:"from"`
	To       hunt.State `json:"to"`
	Replies  int        `json:"replies"`
	Fault    string     `json:"fault,omitempty"`
	At       time.Time  `json:"at"`
}

type Observer func(Transition)

type Option func(*Engine)

// WithResolveCity sets the city whose prize locations shared locations are
// matched against, and whether the user's selected city takes precedence.
func WithResolveCity(city hunt.City, scope Scope) Option {
	return func(e *Engine) {
		e.resolveCity = city
		e.scope = scope
	}
}

// WithObserver registers fn to be called after every handled event.
func WithObserver(fn Observer) Option {
	return func(e *Engine) {
		if fn != nil {
			e.observers = append(e.observers, fn)
		}
	}
}

// WithDedupeWindow sets how many recent message ids are remembered for
// dropping webhook redeliveries.
func WithDedupeWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.dedupeWindow = n
		}
	}
}

type Engine struct {
	machine   *Machine
	store     progress.Store
	sender    messenger.Sender
	logger    *slog.Logger
	observers []Observer

	locks *senderLocks
	seen  *recentIDs

	resolveCity  hunt.City
	scope        Scope
	dedupeWindow int
}

func New(catalog hunt.CityCatalog, store progress.Store, sender messenger.Sender, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		sender:       sender,
		logger:       logger,
		locks:        newSenderLocks(),
		resolveCity:  hunt.CitySanFrancisco,
		dedupeWindow: defaultDedupeWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.machine = NewMachine(catalog, e.resolveCity, e.scope)
	e.seen = newRecentIDs(e.dedupeWindow)
	return e
}

// Handle processes one messaging event to completion. Events from the same
// sender are serialised. Recovered conversation faults are logged and do
// not produce an error; malformed events and storage failures do.
func (e *Engine) Handle(ctx context.Context, ev messenger.Event) error {
	if ev.IsEcho() {
		return nil
	}

	senderID := ev.Sender.ID
	if senderID == "" {
		return fmt.Errorf("%w: missing sender id", messenger.ErrMalformedEvent)
	}

	in, err := InputFromEvent(ev)
	if err != nil {
		return err
	}

	unlock := e.locks.lock(senderID)
	defer unlock()

	var mid string
	if ev.Message != nil {
		mid = ev.Message.MID
	}
	if mid != "" && e.seen.contains(mid) {
		e.logger.Debug("duplicate message ignored", "sender", senderID, "mid", mid)
		return nil
	}

	before, err := e.store.Get(ctx, senderID)
	if err != nil {
		return fmt.Errorf("loading progress: %w", err)
	}

	out := e.machine.Step(before, in)
	if out.Fault != nil {
		e.logger.Warn("conversation fault recovered",
			"sender", senderID,
			"input", in.Kind.String(),
			"error", out.Fault,
		)
	}

	switch {
	case out.Reset:
		err = e.store.Reset(ctx, senderID)
	case out.Progress != before:
		err = e.store.Put(ctx, senderID, out.Progress)
	}
	if err != nil {
		return fmt.Errorf("saving progress: %w", err)
	}

	for _, reply := range out.Replies {
		if res := e.sender.Deliver(ctx, reply.To(senderID)); !res.OK() {
			e.logger.Error("reply not handed off", "sender", senderID, "error", res.Err)
		}
	}

	if mid != "" {
		e.seen.add(mid)
	}

	e.notify(Transition{
		SenderID: senderID,
		Input:    in.Kind.String(),
		From:     e.machine.State(before),
		To:       e.machine.State(out.Progress),
		Replies:  len(out.Replies),
		Fault:    errString(out.Fault),
		At:       time.Now().UTC(),
	})
	return nil
}

func (e *Engine) notify(t Transition) {
	for _, fn := range e.observers {
		fn(t)
	}
}

// Progress returns the stored progress of senderID and its current stage.
func (e *Engine) Progress(ctx context.Context, senderID string) (hunt.Progress, hunt.State, error) {
	p, err := e.store.Get(ctx, senderID)
	if err != nil {
		return hunt.Progress{}, 0, err
	}
	return p, e.machine.State(p), nil
}

// Reset clears senderID's progress without messaging them. Observers see
// it as an "admin_reset" input.
func (e *Engine) Reset(ctx context.Context, senderID string) error {
	unlock := e.locks.lock(senderID)
	defer unlock()

	before, err := e.store.Get(ctx, senderID)
	if err != nil {
		return fmt.Errorf("loading progress: %w", err)
	}
	if err := e.store.Reset(ctx, senderID); err != nil {
		return fmt.Errorf("resetting progress: %w", err)
	}

	e.notify(Transition{
		SenderID: senderID,
		Input:    "admin_reset",
		From:     e.machine.State(before),
		To:       hunt.StateNeedCity,
		At:       time.Now().UTC(),
	})
	return nil
}

// InputFromEvent classifies ev. Quick replies win over text, and text over
// attachments.
func InputFromEvent(ev messenger.Event) (Input, error) {
	switch {
	case ev.Message != nil:
		m := ev.Message
		switch {
		case m.QuickReply != nil:
			return Input{
				Kind:       InputQuickReply,
				Payload:    hunt.ParsePayload(m.QuickReply.Payload),
				RawPayload: m.QuickReply.Payload,
			}, nil
		case m.Text != "":
			return Input{Kind: InputText, Text: m.Text}, nil
		case len(m.Attachments) > 0:
			c, err := m.FirstCoordinates()
			if err != nil {
				return Input{}, err
			}
			return Input{Kind: InputLocation, Coordinates: c}, nil
		}
		return Input{}, fmt.Errorf("%w: message has no text, quick reply or attachment", messenger.ErrMalformedEvent)
	case ev.Postback != nil:
		return Input{Kind: InputPostback, RawPayload: ev.Postback.Payload}, nil
	}
	return Input{}, fmt.Errorf("%w: neither message nor postback", messenger.ErrMalformedEvent)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
