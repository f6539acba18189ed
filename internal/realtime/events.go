// Package realtime delivers server-confirmed row changes to connected
// devices so local stores converge without polling.
//
// The hub server accepts one WebSocket subscription per device,
// filtered to the authenticated user's rows. Devices publish the
// changes they have written to the remote table on the same
// connection; the hub rebroadcasts each event to every subscriber of
// that user, in receipt order, with no coalescing.
package realtime

import (
	"time"

	"github.com/daybook-sh/daybook/internal/remote"
)

// EventType is the kind of row change carried by an Event.
type EventType string

const (
	// EventInsert indicates a row was created.
	EventInsert EventType = "insert"

	// EventUpdate indicates a row was rewritten.
	EventUpdate EventType = "update"

	// EventDelete indicates a row was removed. Only the identifying
	// fields of Row (id, user_id, date) are meaningful.
	EventDelete EventType = "delete"
)

// Event is one change-feed notification.
type Event struct {
	Type      EventType  `json:"type"`
	Row       remote.Row `json:"row"`
	Timestamp time.Time  `json:"timestamp,omitzero"`
}
