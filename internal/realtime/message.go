// Package realtime fans board updates out to every teacher viewing the same
// room: a pub/sub bus between API instances, the latest content blob per
// room and a server-sent-events hub for connected browsers.
package realtime

import (
	"encoding/json"
	"math/rand/v2"
)

type Event string

const (
	EventContent  Event = "content"
	EventPresence Event = "presence"
	EventLessons  Event = "lessons"
)

type Message struct {
	Room  string          `json:"room"`
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Presence is what a teacher shares about themselves while editing.
type Presence struct {
	ClientID     string  `json:"clientId,omitempty"`
	DisplayName  string  `json:"displayName"`
	AvatarColor  string  `json:"avatarColor"`
	ActiveCellID *string `json:"activeCellId"`
}

// Identity is an anonymous display name and color for a room member.
type Identity struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

var (
	identityNames  = []string{"Teacher A", "Teacher B", "Teacher C", "Teacher D", "Teacher E"}
	identityColors = []string{"#0d9488", "#f59e0b", "#f97316", "#6366f1", "#ec4899", "#14b8a6", "#8b5cf6"}
)

func RandomIdentity() Identity {
	return Identity{
		Name:  identityNames[rand.IntN(len(identityNames))],
		Color: identityColors[rand.IntN(len(identityColors))],
	}
}
