// Package command defines operator commands delivered on the command channel.
package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is the closed set of commands the supervisor understands.
type Kind string

const (
	KindPark     Kind = "park"
	KindShutdown Kind = "shutdown"
	KindUnknown  Kind = "unknown"
)

// ParseKind maps a wire message to a Kind. Only the exact lower-case
// names match; anything else, including "PARK" or " park", is KindUnknown.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindPark:
		return KindPark
	case KindShutdown:
		return KindShutdown
	default:
		return KindUnknown
	}
}

// Command is one operator request, consumed exactly once.
type Command struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Raw        json.RawMessage `json:"raw"`
	ReceivedAt time.Time       `json:"received_at"`
}

// New builds a Command from the decoded "message" field and the raw payload.
func New(message string, raw []byte, receivedAt time.Time) Command {
	return Command{
		ID:         uuid.NewString(),
		Kind:       ParseKind(message),
		Raw:        append(json.RawMessage(nil), raw...),
		ReceivedAt: receivedAt,
	}
}

// String returns a short description for logs.
func (c Command) String() string {
	return fmt.Sprintf("%s(%s)", c.Kind, c.ID)
}
