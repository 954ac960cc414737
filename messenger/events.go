package messenger

import "encoding/json"

// Payload is the body of a webhook POST.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the events of one page.
type Entry struct {
	ID        string  `json:"id"`
	Time      int64   `json:"time"`
	Messaging []Event `json:"messaging"`
}

// Party identifies a sender or recipient by page-scoped id.
type Party struct {
	ID string `json:"id"`
}

// Event is one messaging event.
type Event struct {
	Sender    Party            `json:"sender"`
	Recipient Party            `json:"recipient"`
	Timestamp int64            `json:"timestamp"`
	Message   *Message         `json:"message,omitempty"`
	Postback  *json.RawMessage `json:"postback,omitempty"`
	Read      *json.RawMessage `json:"read,omitempty"`
	Delivery  *json.RawMessage `json:"delivery,omitempty"`
}

// Message is the message part of an event.
type Message struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text"`
	IsEcho      bool         `json:"is_echo,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a file sent with a message.
type Attachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

type AttachmentPayload struct {
	URL string `json:"url"`
}

// ImageURLs returns the URLs of the message's image attachments.
func (m *Message) ImageURLs() []string {
	var urls []string
	for _, a := range m.Attachments {
		if a.Type == "image" && a.Payload.URL != "" {
			urls = append(urls, a.Payload.URL)
		}
	}
	return urls
}
