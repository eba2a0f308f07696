package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RefreshMessage asks the worker to pull the spreadsheet again.
type RefreshMessage struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRefreshMessage(reason string) *RefreshMessage {
	return &RefreshMessage{
		ID:        uuid.NewString(),
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("refresh message without id")
	}
	return &msg, nil
}
