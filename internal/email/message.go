package email

import (
	"encoding/json"
	"fmt"
)

// Kind selects the template used for an outbound email
type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
	KindTutorApproved Kind = "tutor_approved"
	KindTutorRejected Kind = "tutor_rejected"
)

// Message is the payload carried on the email topic
type Message struct {
	Kind  Kind   `json:"kind"`
	To    string `json:"to"`
	Name  string `json:"name"`
	Token string `json:"token,omitempty"`
}

func (m Message) validate() error {
	switch m.Kind {
	case KindVerification, KindPasswordReset:
		if m.Token == "" {
			return fmt.Errorf("%s email without token", m.Kind)
		}
	case KindTutorApproved, KindTutorRejected:
	default:
		return fmt.Errorf("unknown email kind %q", m.Kind)
	}
	if m.To == "" {
		return fmt.Errorf("%s email without recipient", m.Kind)
	}
	return nil
}

func decodeMessage(payload []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Message{}, fmt.Errorf("decode email message: %w", err)
	}
	if err := m.validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}
