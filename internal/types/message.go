package types

// Attachment is a decoded file attached to a mail message
type Attachment struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Content  []byte `json:"-"`
}

// Message is one fetched mail item. It is never mutated after fetch.
type Message struct {
	ID          string       `json:"id"`
	From        string       `json:"from"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// HasContent reports whether the message carries anything worth extracting
func (m Message) HasContent() bool {
	return m.Body != "" || len(m.Attachments) > 0
}
