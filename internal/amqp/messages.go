package amqp

import (
	"encoding/json"
	"time"
)

// TakingsImportedMessage announces that one import committed. It carries
// only keys; consumers read the takings back from the database.
type TakingsImportedMessage struct {
	UploadID  int64     `json:"upload_id,omitempty"`
	Store     string    `json:"store"`
	Dates     []string  `json:"dates"`
	Inserted  int       `json:"inserted"`
	Ignored   int       `json:"ignored"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTakingsImportedMessage(uploadID int64, store string, dates []string, inserted, ignored int) *TakingsImportedMessage {
	if dates == nil {
		dates = []string{}
	}
	return &TakingsImportedMessage{
		UploadID:  uploadID,
		Store:     store,
		Dates:     dates,
		Inserted:  inserted,
		Ignored:   ignored,
		Timestamp: time.Now().UTC(),
	}
}

func (m *TakingsImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TakingsImportedMessageFromJSON validates data against the event schema
// and decodes it.
func TakingsImportedMessageFromJSON(data []byte) (*TakingsImportedMessage, error) {
	if err := validateTakingsImported(data); err != nil {
		return nil, err
	}
	var msg TakingsImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
