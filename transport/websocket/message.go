package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/movechain/internal/entity"
)

const (
	actionEntryPublish = "entry:publish"
	actionLogSync      = "log:sync"
	actionLogRecords   = "log:records"
)

// Message represents a gossip message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type recordsPayload struct {
	Records []entity.Record `json:"records"`
}

func newMessage(action string, payload any) (Message, error) {
	if payload == nil {
		return Message{Action: action}, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return Message{Action: action, Payload: raw}, nil
}
