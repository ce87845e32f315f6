package email

import (
	"fmt"
	"io"

	"github.com/jhillyerd/enmime"
)

// Message is the part of a raw email the pipeline cares about.
type Message struct {
	Subject string
	From    string
	HTML    string // empty when the message has no HTML part
	Text    string // plain-text part, or a rendering of the HTML part when absent
}

// ReadMessage reads a raw RFC 5322 message (an .eml file) and returns its
// decoded HTML and text parts.
func ReadMessage(r io.Reader) (*Message, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("cannot read message: %w", err)
	}
	return &Message{
		Subject: env.GetHeader("Subject"),
		From:    env.GetHeader("From"),
		HTML:    env.HTML,
		Text:    env.Text,
	}, nil
}
