// Package events contains the message contracts of the dashboard websocket
// session.
package events

import (
	"time"

	api "bikepulse/pkg/contracts/api/v1"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeRange is sent by the client to request a new render
	MessageTypeRange MessageType = "range"

	// MessageTypeSnapshot carries a computed dashboard snapshot
	MessageTypeSnapshot MessageType = "snapshot"

	// MessageTypeConnect is sent once after the upgrade
	MessageTypeConnect MessageType = "connect"

	// MessageTypeError reports a rejected request
	MessageTypeError MessageType = "error"

	// MessageTypeHeartbeat is an application-level keepalive from the page
	MessageTypeHeartbeat MessageType = "heartbeat"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// RangeMessage is the client's date picker change.
type RangeMessage struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id,omitempty"`
	api.RangeQuery
}

// ServerMessage is any message written by the server.
type ServerMessage struct {
	BaseMessage
	Data  interface{}   `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
}

// ErrorPayload mirrors the RFC 7807 fields that matter to a websocket client.
type ErrorPayload struct {
	Code   string      `json:"code"`
	Title  string      `json:"title"`
	Detail string      `json:"detail,omitempty"`
	Fields interface{} `json:"fields,omitempty"`
}

// NewServerMessage builds a server message stamped with the current time.
func NewServerMessage(msgType MessageType, replyTo, traceID string, data interface{}) ServerMessage {
	return ServerMessage{
		BaseMessage: BaseMessage{
			ID:        replyTo,
			Type:      msgType,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	}
}

// NewErrorMessage builds an error reply.
func NewErrorMessage(replyTo, traceID string, payload ErrorPayload) ServerMessage {
	msg := NewServerMessage(MessageTypeError, replyTo, traceID, nil)
	msg.Error = &payload
	return msg
}
