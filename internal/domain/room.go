package domain

type (
	// RoomID is assigned externally (by the scheduling layer); the relay
	// never generates room ids itself.
	RoomID string

	// ConnID identifies one live attachment. The same user reconnecting
	// gets a fresh ConnID, so a stale entry never collides with the new one.
	ConnID string
)
