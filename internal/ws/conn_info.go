package ws

import "time"

// ConnInfo identifies one live connection for metrics and event publishing.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
