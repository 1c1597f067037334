package protocol

// MessageType discriminates the Message envelope.
type MessageType string

const (
	MessageTypeRecord MessageType = "RECORD"
	MessageTypeState  MessageType = "STATE"
	MessageTypeLog    MessageType = "LOG"
)

// Log levels used by sources.
const (
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"
)

// RecordMessage carries one record read from a stream.
// EmittedAt is milliseconds since the epoch and is ignored by comparisons.
type RecordMessage struct {
	Stream    string         `json:"stream" yaml:"stream"`
	Data      map[string]any `json:"data" yaml:"data"`
	EmittedAt int64          `json:"emitted_at,omitempty" yaml:"emitted_at,omitempty"`
}

// StateMessage carries the cursor state of one stream.
type StateMessage struct {
	Stream string         `json:"stream" yaml:"stream"`
	State  map[string]any `json:"state" yaml:"state"`
}

// LogMessage is a log line emitted by a source operation.
type LogMessage struct {
	Level   string `json:"level" yaml:"level"`
	Message string `json:"message" yaml:"message"`
}

// Message is the envelope emitted by a read. Exactly one payload is set,
// matching Type.
type Message struct {
	Type   MessageType    `json:"type"`
	Record *RecordMessage `json:"record,omitempty"`
	State  *StateMessage  `json:"state,omitempty"`
	Log    *LogMessage    `json:"log,omitempty"`
}

// NewRecord wraps a record in a Message.
func NewRecord(r RecordMessage) Message {
	return Message{Type: MessageTypeRecord, Record: &r}
}

// NewState wraps a state in a Message.
func NewState(s StateMessage) Message {
	return Message{Type: MessageTypeState, State: &s}
}

// NewLog wraps a log line in a Message.
func NewLog(level, message string) Message {
	return Message{Type: MessageTypeLog, Log: &LogMessage{Level: level, Message: message}}
}

// StreamName returns the stream a record or state message belongs to.
// Log messages have no stream.
func (m Message) StreamName() string {
	switch {
	case m.Record != nil:
		return m.Record.Stream
	case m.State != nil:
		return m.State.Stream
	default:
		return ""
	}
}
