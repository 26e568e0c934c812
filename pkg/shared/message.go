package shared

// MessageType defines the type of a message exchanged over the WebSocket
// connection. The values are part of the wire protocol with the browser
// frontend and must stay stable.
type MessageType int

const (
	MessageTypeText         MessageType = 0 // plain terminal output
	MessageTypeClear        MessageType = 1 // clear the screen
	MessageTypeMode         MessageType = 2 // mode switch ("shell", "capture")
	MessageTypeSession      MessageType = 3 // session ID hand-over
	MessageTypeInputControl MessageType = 4 // enable/disable the input line
	MessageTypePrompt       MessageType = 5 // prompt symbol update
	MessageTypeError        MessageType = 6 // error output (rendered highlighted)
	MessageTypeAuthRefresh  MessageType = 7 // client must refresh its token
)

// Message is the envelope sent to or received from a terminal client.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`

	// NoNewline suppresses the automatic line break after Content.
	NoNewline bool `json:"noNewline,omitempty"`

	// SessionID is set on MessageTypeSession messages.
	SessionID string `json:"sessionId,omitempty"`

	// Prompt carries the prompt symbol for MessageTypePrompt.
	Prompt string `json:"prompt,omitempty"`

	// InputEnabled is evaluated for MessageTypeInputControl.
	InputEnabled bool `json:"inputEnabled,omitempty"`
}

// TextMessage builds a plain text output message.
func TextMessage(content string) Message {
	return Message{Type: MessageTypeText, Content: content}
}

// ErrorMessage builds an error output message.
func ErrorMessage(content string) Message {
	return Message{Type: MessageTypeError, Content: content}
}
