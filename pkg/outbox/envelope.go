package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies what produced the event. Most events originate from
// provider webhooks or the reconciler, where Source is the only meaningful
// field; request-driven events also carry the calling service account.
type ActorRef struct {
	Source   string `json:"source"`
	ClientID string `json:"clientId,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
