package messenger

const (
	ContentTypeText     = "text"
	ContentTypeLocation = "location"
)

// Message is an outbound Send API request body.
type Message struct {
	Recipient Party   `json:"recipient"`
	Message   Content `json:"message"`
}

// Content is what the user sees: text, optional quick replies, or an
// attachment.
type Content struct {
	Text         string       `json:"text,omitempty"`
	QuickReplies []QuickReply `json:"quick_replies,omitempty"`
	Attachment   *Attachment  `json:"attachment,omitempty"`
}

type QuickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title,omitempty"`
	Payload     string `json:"payload,omitempty"`
}

type Attachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

// Text builds a plain text content.
func Text(text string) Content {
	return Content{Text: text}
}

// TextReply builds a text quick reply.
func TextReply(title, payload string) QuickReply {
	return QuickReply{ContentType: ContentTypeText, Title: title, Payload: payload}
}

// LocationReply builds the platform's share-location quick reply.
func LocationReply() QuickReply {
	return QuickReply{ContentType: ContentTypeLocation}
}

// To addresses c to recipientID.
func (c Content) To(recipientID string) Message {
	return Message{Recipient: Party{ID: recipientID}, Message: c}
}
