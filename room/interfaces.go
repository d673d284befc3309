package room

import "time"

// Broadcaster delivers framed packets to accounts. It is defined here so
// the room does not depend on the transport.
type Broadcaster interface {
	BroadcastToUsers(accountIDs []string, msgID uint16, data []byte) error
}

// Observer receives per-command measurements.
type Observer interface {
	CommandHandled(command, outcome string, took time.Duration)
	CommitFailed(command string)
}

type nopObserver struct{}

func (nopObserver) CommandHandled(string, string, time.Duration) {}
func (nopObserver) CommitFailed(string)                          {}
