package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/filescenario/internal/canonical"
	"github.com/roach88/filescenario/internal/protocol"
)

// marshalPayload converts the payload of msg to canonical JSON TEXT.
func marshalPayload(msg protocol.Message) (string, error) {
	var payload any
	var missing bool
	switch msg.Type {
	case protocol.MessageTypeRecord:
		payload, missing = msg.Record, msg.Record == nil
	case protocol.MessageTypeState:
		payload, missing = msg.State, msg.State == nil
	case protocol.MessageTypeLog:
		payload, missing = msg.Log, msg.Log == nil
	default:
		return "", fmt.Errorf("marshal payload: unknown message type %q", msg.Type)
	}
	if missing {
		return "", fmt.Errorf("marshal payload: %s message has no payload", msg.Type)
	}
	data, err := canonical.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT into a message of type typ.
// Numbers decode as json.Number to avoid float64 precision loss.
func unmarshalPayload(typ protocol.MessageType, data string) (protocol.Message, error) {
	msg := protocol.Message{Type: typ}
	var target any
	switch typ {
	case protocol.MessageTypeRecord:
		msg.Record = &protocol.RecordMessage{}
		target = msg.Record
	case protocol.MessageTypeState:
		msg.State = &protocol.StateMessage{}
		target = msg.State
	case protocol.MessageTypeLog:
		msg.Log = &protocol.LogMessage{}
		target = msg.Log
	default:
		return protocol.Message{}, fmt.Errorf("unmarshal payload: unknown message type %q", typ)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(target); err != nil {
		return protocol.Message{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	return msg, nil
}
