package websocket

import (
	"time"
)

// Connection is the part of a websocket connection the clients use.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// Broadcaster publishes events to every connected client.
type Broadcaster interface {
	Broadcast(msgType string, data any)
	ClientCount() int
}
