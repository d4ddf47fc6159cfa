// Package messenger holds the chat platform wire types and the outbound
// delivery path: a Send API client and an asynchronous outbox in front of it.
package messenger

import (
	"errors"
	"fmt"

	"github.com/playperu/scavengerbot/internal/hunt"
)

var ErrMalformedEvent = errors.New("malformed messaging event")

// Callback is the body of a webhook POST.
type Callback struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string  `json:"id"`
	Time      int64   `json:"time"`
	Messaging []Event `json:"messaging"`
}

type Party struct {
	ID string `json:"id"`
}

// Event is a single messaging event. Exactly one of Message or Postback is
// expected to be set.
type Event struct {
	Sender    Party           `json:"sender"`
	Recipient Party           `json:"recipient"`
	Timestamp int64           `json:"timestamp"`
	Message   *InboundMessage `json:"message,omitempty"`
	Postback  *Postback       `json:"postback,omitempty"`
}

type InboundMessage struct {
	IsEcho      bool                `json:"is_echo,omitempty"`
	MID         string              `json:"mid,omitempty"`
	AppID       int64               `json:"app_id,omitempty"`
	Text        string              `json:"text,omitempty"`
	Attachments []InboundAttachment `json:"attachments,omitempty"`
	QuickReply  *QuickReplyPayload  `json:"quick_reply,omitempty"`
}

type QuickReplyPayload struct {
	Payload string `json:"payload"`
}

type InboundAttachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

type AttachmentPayload struct {
	URL         string           `json:"url,omitempty"`
	Coordinates *hunt.Coordinate `json:"coordinates,omitempty"`
}

type Postback struct {
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload"`
}

// IsEcho reports whether e is the platform echoing one of our own sends.
func (e Event) IsEcho() bool {
	return e.Message != nil && e.Message.IsEcho
}

// FirstCoordinates returns the coordinates carried by the first attachment.
// Later attachments are ignored.
func (m *InboundMessage) FirstCoordinates() (hunt.Coordinate, error) {
	if m == nil || len(m.Attachments) == 0 {
		return hunt.Coordinate{}, fmt.Errorf("%w: no attachments", ErrMalformedEvent)
	}
	c := m.Attachments[0].Payload.Coordinates
	if c == nil {
		return hunt.Coordinate{}, fmt.Errorf("%w: first attachment has no coordinates", ErrMalformedEvent)
	}
	return *c, nil
}
