package notification

import (
	"encoding/json"
	"errors"
	"fmt"

	"washroom-tracker-client/internal/parse"
)

// ErrInvalidPayload is returned for push messages that cannot be decoded.
var ErrInvalidPayload = errors.New("notification: invalid push payload")

// Kind is the meaning of a push message.
type Kind string

const (
	KindStallAvailable  Kind = "stall_available"
	KindSessionExpiring Kind = "session_expiring"
	KindOther           Kind = "other"
)

// Wire values of data.type.
const (
	wireToiletAvailable = "toilet_available"
	wireSessionExpiring = "session_expiring"
)

// Origin is how the message reached the client.
type Origin string

const (
	OriginForeground Origin = "foreground"
	OriginBackground Origin = "background"
	OriginOpened     Origin = "opened"
)

// ParseOrigin maps a transport-supplied origin, defaulting to foreground.
func ParseOrigin(s string) Origin {
	switch Origin(s) {
	case OriginBackground, OriginOpened:
		return Origin(s)
	default:
		return OriginForeground
	}
}

// Message is the push payload as delivered by the backend.
type Message struct {
	Notification struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	} `json:"notification"`
	Data struct {
		Type     string          `json:"type"`
		ToiletID json.RawMessage `json:"toilet_id"`
	} `json:"data"`
}

// Event is a decoded push message.
type Event struct {
	Kind    Kind   `json:"kind"`
	Origin  Origin `json:"origin"`
	StallID int64  `json:"stall_id,omitempty"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

// Decode turns a raw push payload into an Event. Stall-bound kinds require a
// valid toilet_id; other kinds carry one only when it parses.
func Decode(origin Origin, raw []byte) (Event, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	ev := Event{
		Origin: origin,
		Title:  msg.Notification.Title,
		Body:   msg.Notification.Body,
	}
	switch msg.Data.Type {
	case wireToiletAvailable:
		ev.Kind = KindStallAvailable
	case wireSessionExpiring:
		ev.Kind = KindSessionExpiring
	default:
		ev.Kind = KindOther
	}

	id, err := parse.StallID(msg.Data.ToiletID)
	switch {
	case err == nil:
		ev.StallID = id
	case ev.Kind != KindOther:
		return Event{}, fmt.Errorf("%w: %s without a toilet id: %w", ErrInvalidPayload, msg.Data.Type, err)
	}
	return ev, nil
}

// key identifies an event for de-duplication.
func (ev Event) key() string {
	if ev.Kind == KindOther {
		return fmt.Sprintf("%s|%s|%s|%s", ev.Kind, ev.Origin, ev.Title, ev.Body)
	}
	return fmt.Sprintf("%s|%s|%d", ev.Kind, ev.Origin, ev.StallID)
}
