package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// MessageID identifies a message in one of two spaces. Durable identifiers
// are assigned by the server and stable for the message's lifetime.
// Tentative identifiers are minted locally for optimistic entries and never
// outlive the request that created them; they never appear on the wire.
type MessageID struct {
	value     string
	tentative bool
}

// NewTentativeID mints a fresh local identifier for an optimistic message
func NewTentativeID() MessageID {
	return MessageID{value: uuid.NewString(), tentative: true}
}

// DurableID wraps a server-assigned identifier
func DurableID(value string) MessageID {
	return MessageID{value: value}
}

// Tentative reports whether the identifier was minted locally
func (id MessageID) Tentative() bool {
	return id.tentative
}

// Value returns the raw identifier string
func (id MessageID) Value() string {
	return id.value
}

// IsZero reports whether the identifier is unset
func (id MessageID) IsZero() bool {
	return id.value == ""
}

func (id MessageID) String() string {
	return id.value
}

// MarshalJSON emits the raw identifier value
func (id MessageID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON always yields a durable identifier: only the server puts
// message identifiers on the wire.
func (id *MessageID) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*id = MessageID{value: value}
	return nil
}
