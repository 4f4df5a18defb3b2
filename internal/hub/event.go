package hub

// Push event kinds. Adding a kind never touches delivery logic: implement
// Event and hand the value to Broadcast or SendTo.
const (
	EventTypeSessionInit  = "session_id"
	EventTypeFileUploaded = "file_uploaded"
	EventTypeChatMessage  = "message_response"
)

// Event is a value pushed to subscribers through the hub.
type Event interface {
	EventType() string
}

// SessionInit is sent to a subscriber immediately after registration and
// carries its server-issued connection id.
type SessionInit struct {
	SID string `json:"sid"`
}

func (SessionInit) EventType() string { return EventTypeSessionInit }

// FileUploaded is broadcast after an upload commits. SID identifies the
// initiating connection when the uploader supplied one.
type FileUploaded struct {
	OriginalFilename string `json:"original_filename"`
	SavedFilename    string `json:"saved_filename"`
	SID              string `json:"sid,omitempty"`
}

func (FileUploaded) EventType() string { return EventTypeFileUploaded }

// ChatMessage is a relayed chat line, broadcast to every subscriber with the
// sender's connection id echoed back.
type ChatMessage struct {
	Text string `json:"text"`
	SID  string `json:"sid"`
}

func (ChatMessage) EventType() string { return EventTypeChatMessage }

// Envelope is the wire shape of every pushed message.
type Envelope struct {
	Type string `json:"type"`
	Data Event  `json:"data"`
}

func wrap(e Event) Envelope {
	return Envelope{Type: e.EventType(), Data: e}
}
