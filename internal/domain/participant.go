// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxRoomIDLen = 64
	MaxUserIDLen = 64
)

var (
	ErrRoomIDMissing = errors.New("roomId missing")
	ErrUserIDMissing = errors.New("userId missing")
	ErrRoleMissing   = errors.New("role missing")
	ErrRoomIDTooLong = errors.New("roomId too long")
	ErrUserIDTooLong = errors.New("userId too long")
)

type UserID string

// Role is the participant's function in the interview (e.g. "interviewer",
// "candidate"). The relay treats it as opaque, pre-validated upstream.
type Role string

// Participant is one live attachment to a room.
type Participant struct {
	UserID UserID `json:"userId"`
	Role   Role   `json:"role"`
	ConnID ConnID `json:"-"`
}

// Attach is the validated identity triple a client presents when attaching.
type Attach struct {
	RoomID RoomID
	UserID UserID
	Role   Role
}

// ParseAttach validates the raw attach parameters. Any missing field rejects
// the connection before any room state is touched.
func ParseAttach(roomID, userID, role string) (Attach, error) {
	switch {
	case roomID == "":
		return Attach{}, ErrRoomIDMissing
	case userID == "":
		return Attach{}, ErrUserIDMissing
	case role == "":
		return Attach{}, ErrRoleMissing
	case len(roomID) > MaxRoomIDLen:
		return Attach{}, ErrRoomIDTooLong
	case len(userID) > MaxUserIDLen:
		return Attach{}, ErrUserIDTooLong
	}
	return Attach{RoomID: RoomID(roomID), UserID: UserID(userID), Role: Role(role)}, nil
}
