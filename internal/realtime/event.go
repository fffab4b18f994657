package realtime

import "time"

// Event kinds delivered over the realtime channel.
const (
	EventReservationStatus = "reservation_status_update"
	EventAdminNotification = "admin_notification"
	EventSystemMessage     = "system_message"
)

// Room names.  User and shop rooms are derived from ids; the admin room
// and broadcast target are fixed.
const (
	AdminRoom     = "admin-reservations"
	BroadcastRoom = "*"
)

// UserRoom returns the private room name for a user id.
func UserRoom(userID uint64) string { return roomName("user", userID) }

// ShopRoom returns the room name shared by a shop's staff dashboards.
func ShopRoom(shopID uint64) string { return roomName("shop", shopID) }

// Event is one message fanned out to a room.  Delivery is at-most-once
// and best-effort: events for rooms with no live connection are dropped
// and no receipt is kept.
type Event struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Room     string    `json:"room"`
	Priority string    `json:"priority,omitempty"`
	Payload  any       `json:"payload"`
	SentAt   time.Time `json:"sent_at"`
}
