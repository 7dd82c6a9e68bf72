package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/narvanalabs/mission-console/internal/models"
	"github.com/valyala/fastjson"
)

// Message types sent by the backend.
const (
	TypeHistory = "history"
	TypeLog     = "log"
)

var (
	// ErrUnknownMessageType is returned for frames with an unrecognized type tag.
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrMalformedMessage is returned for frames that cannot be decoded.
	ErrMalformedMessage = errors.New("malformed message")
)

// Message is one decoded stream frame. Logs is set for history frames and
// Entry for log frames.
type Message struct {
	Type  string            `json:"type"`
	Logs  []models.LogEntry `json:"logs,omitempty"`
	Entry *models.LogEntry  `json:"entry,omitempty"`
}

var parsers fastjson.ParserPool

// frameType reads the type tag of a frame. A missing tag reads as "".
func frameType(data []byte) (string, error) {
	p := parsers.Get()
	defer parsers.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return "", err
	}
	obj, err := v.Object()
	if err != nil {
		return "", err
	}
	tag := obj.Get("type")
	if tag == nil {
		return "", nil
	}
	b, err := tag.StringBytes()
	if err != nil {
		return "", fmt.Errorf("type: %w", err)
	}
	return string(b), nil
}

// Decode parses and validates a frame. A history frame with any invalid
// entry is rejected as a whole.
func Decode(data []byte) (Message, error) {
	msgType, err := frameType(data)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msgType != TypeHistory && msgType != TypeLog {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, msgType)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.Type {
	case TypeHistory:
		if msg.Logs == nil {
			return Message{}, fmt.Errorf("%w: history without logs", ErrMalformedMessage)
		}
		for i := range msg.Logs {
			if err := msg.Logs[i].Validate(); err != nil {
				return Message{}, fmt.Errorf("%w: history entry %d: %v", ErrMalformedMessage, i, err)
			}
		}
		msg.Entry = nil
	case TypeLog:
		if msg.Entry == nil {
			return Message{}, fmt.Errorf("%w: log without entry", ErrMalformedMessage)
		}
		if err := msg.Entry.Validate(); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		msg.Logs = nil
	}
	return msg, nil
}

// EncodeHistory builds a history frame.
func EncodeHistory(entries []models.LogEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.LogEntry{}
	}
	return json.Marshal(struct {
		Type string            `json:"type"`
		Logs []models.LogEntry `json:"logs"`
	}{TypeHistory, entries})
}

// EncodeLog builds a log frame.
func EncodeLog(entry models.LogEntry) ([]byte, error) {
	return json.Marshal(Message{Type: TypeLog, Entry: &entry})
}
