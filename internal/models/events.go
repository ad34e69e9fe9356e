package models

// Event types published to the event bus.
const (
	EventDocumentExtracted = "document.extracted"
	EventVoiceTranscribed  = "voice.transcribed"
	EventAnswerProduced    = "answer.produced"
)

// DocumentExtracted is emitted after an uploaded or inbox document has been
// converted to text.
type DocumentExtracted struct {
	EventType string `json:"eventType"`
	EventID   string `json:"eventId"`
	SessionID string `json:"sessionId"`
	Principal string `json:"principal"`
	Timestamp int64  `json:"timestamp"`
	Source    string `json:"source"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Outcome   string `json:"outcome"`
	Chars     int    `json:"chars"`
	Text      string `json:"text,omitempty"`
}

// VoiceTranscribed is emitted after a voice clip has been through the
// recognizer, whatever the outcome.
type VoiceTranscribed struct {
	EventType string `json:"eventType"`
	EventID   string `json:"eventId"`
	SessionID string `json:"sessionId"`
	Principal string `json:"principal"`
	Timestamp int64  `json:"timestamp"`
	Name      string `json:"name"`
	Outcome   string `json:"outcome"`
	Text      string `json:"text"`
}

// AnswerProduced is emitted for every model answer produced for a session.
type AnswerProduced struct {
	EventType string `json:"eventType"`
	EventID   string `json:"eventId"`
	SessionID string `json:"sessionId"`
	Principal string `json:"principal"`
	Timestamp int64  `json:"timestamp"`
	Mode      string `json:"mode"` // chat, document
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Outcome   string `json:"outcome"`
	LatencyMs int64  `json:"latencyMs"`
}
