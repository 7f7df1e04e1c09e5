package hub

import (
	"fmt"
	"strings"
)

// RoomKind is the prefix of a room key.
type RoomKind string

const (
	KindUser    RoomKind = "user"
	KindProject RoomKind = "project"
	KindMedia   RoomKind = "media"
)

func UserRoom(userID string) string       { return string(KindUser) + ":" + userID }
func ProjectRoom(projectID string) string { return string(KindProject) + ":" + projectID }
func MediaRoom(mediaID string) string     { return string(KindMedia) + ":" + mediaID }

// ParseRoom splits a room key into its kind and id.
func ParseRoom(roomID string) (RoomKind, string, error) {
	kind, id, ok := strings.Cut(roomID, ":")
	if !ok || id == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRoom, roomID)
	}
	switch RoomKind(kind) {
	case KindUser, KindProject, KindMedia:
		return RoomKind(kind), id, nil
	default:
		return "", "", fmt.Errorf("%w: unknown kind %q", ErrInvalidRoom, kind)
	}
}
