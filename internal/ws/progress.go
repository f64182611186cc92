package ws

import "github.com/wowjjang83/ai-style-synthesis/internal/synthesis"

// ProgressMessage is what a client receives for each orchestrator transition.
type ProgressMessage struct {
	Type string `json:"type"`
	synthesis.Event
}

// Notifier forwards orchestrator events to the user's sockets.
type Notifier struct {
	hub *Hub
}

func NewNotifier(hub *Hub) *Notifier { return &Notifier{hub: hub} }

func (n *Notifier) Observe(userID uint, ev synthesis.Event) {
	n.hub.BroadcastToUser(userID, ProgressMessage{Type: "synthesis_state", Event: ev})
}
