package events

import "context"

// StreamBounty is the pub/sub channel all bounty events go through.
const StreamBounty = "events:bounty"

// Event types
const (
	EventBountyCreated         = "bounty_created"
	EventParticipationCreated  = "participation_created"
	EventParticipationReviewed = "participation_reviewed"
	EventBountyCompleted       = "bounty_completed"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Recipient returns the wallet address an event is addressed to, or "" for
// events that are broadcast to everyone.
func (e Event) Recipient() string {
	if e.Type != EventParticipationReviewed {
		return ""
	}
	addr, _ := e.Payload["creator_address"].(string)
	return addr
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// NopPublisher drops events. Used by tools that run without Redis.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
