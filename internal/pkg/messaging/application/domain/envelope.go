package messaging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type EnvelopeType string

const (
	EnvelopeAuth    EnvelopeType = "auth"
	EnvelopeMessage EnvelopeType = "message"
)

// Envelope is the JSON unit exchanged over the socket. For auth envelopes
// Content carries the credential and Receiver is unused.
type Envelope struct {
	ID        int64        `json:"id,omitempty"`
	Type      EnvelopeType `json:"type"`
	Sender    int64        `json:"sender"`
	Receiver  int64        `json:"receiver"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
}

// inbound mirrors Envelope but leaves the timestamp raw: the server clock is
// authoritative, so a client timestamp in any format is ignored.
type inbound struct {
	Type      EnvelopeType    `json:"type"`
	Sender    int64           `json:"sender"`
	Receiver  int64           `json:"receiver"`
	Content   string          `json:"content"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// ParseEnvelope decodes and validates one client frame.
func ParseEnvelope(data []byte) (Envelope, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Envelope{}, ErrMalformedFrame
	}
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	env := Envelope{Type: in.Type, Sender: in.Sender, Receiver: in.Receiver, Content: in.Content}
	switch env.Type {
	case EnvelopeAuth:
		if env.Content == "" {
			return Envelope{}, fmt.Errorf("%w: auth envelope without credential", ErrMalformedFrame)
		}
	case EnvelopeMessage:
		if env.Receiver <= 0 {
			return Envelope{}, fmt.Errorf("%w: message envelope without receiver", ErrMalformedFrame)
		}
		if env.Content == "" {
			return Envelope{}, fmt.Errorf("%w: message envelope without content", ErrMalformedFrame)
		}
	case "":
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownFrameType, env.Type)
	}
	return env, nil
}

// MessageEnvelope is the live-push and history representation of m.
func MessageEnvelope(m Message) Envelope {
	return Envelope{
		ID:        m.ID,
		Type:      EnvelopeMessage,
		Sender:    m.SenderID,
		Receiver:  m.ReceiverID,
		Content:   m.Content,
		Timestamp: m.CreatedAt,
	}
}

// AuthAck confirms a binding to the freshly authenticated client.
func AuthAck(userID int64, now time.Time) Envelope {
	return Envelope{
		Type:      EnvelopeAuth,
		Receiver:  userID,
		Content:   "ok",
		Timestamp: now.UTC(),
	}
}
