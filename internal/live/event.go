package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind names the platform interaction an event carries
type Kind string

const (
	KindLike    Kind = "like"
	KindComment Kind = "comment"
	KindFollow  Kind = "follow"
	KindShare   Kind = "share"
	KindGift    Kind = "gift"
)

// ErrUnknownEvent is returned for well-formed payloads of a type nothing
// maps to a game action.
var ErrUnknownEvent = errors.New("unknown event type")

// Payload is one of Like, Comment, Follow, Share or Gift
type Payload interface {
	Kind() Kind
}

type Like struct {
	Count int `json:"count"`
}

type Comment struct {
	Text string `json:"text"`
}

type Follow struct{}

type Share struct{}

// Gift carries the raw gift fields plus an optional pre-classification.
// An empty Action means the dispatcher classifies it from the gift table.
type Gift struct {
	Name     string     `json:"giftName"`
	ID       int64      `json:"giftId,omitempty"`
	Diamonds int        `json:"diamonds"`
	Repeat   int        `json:"repeatCount,omitempty"`
	Action   GiftAction `json:"action,omitempty"`
	Team     string     `json:"team,omitempty"`
	Count    int        `json:"count,omitempty"`
	Large    bool       `json:"isLarge,omitempty"`
}

func (Like) Kind() Kind    { return KindLike }
func (Comment) Kind() Kind { return KindComment }
func (Follow) Kind() Kind  { return KindFollow }
func (Share) Kind() Kind   { return KindShare }
func (Gift) Kind() Kind    { return KindGift }

// Event is an inbound platform event after alias resolution
type Event struct {
	ID         ulid.ULID
	User       string
	ReceivedAt time.Time
	Payload    Payload
}

func (e Event) Kind() Kind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind()
}

// rawEvent accepts both the connector's field names and the relay's
type rawEvent struct {
	Type        string `json:"type"`
	DisplayType string `json:"displayType"`

	UniqueID string `json:"uniqueId"`
	User     string `json:"user"`

	LikeCount int `json:"likeCount"`
	Count     int `json:"count"`

	Comment string `json:"comment"`
	Text    string `json:"text"`

	GiftName      string `json:"giftName"`
	DiamondCount  int    `json:"diamondCount"`
	Diamonds      int    `json:"diamonds"`
	GiftID        int64  `json:"giftId"`
	RepeatCount   int    `json:"repeatCount"`
	RepeatCountSn int    `json:"repeat_count"`
	Action        string `json:"action"`
	Team          string `json:"team"`
	IsLarge       bool   `json:"isLarge"`

	Gift *struct {
		Name         string `json:"name"`
		ID           int64  `json:"id"`
		DiamondCount int    `json:"diamond_count"`
	} `json:"gift"`
}

// Normalize decodes one inbound payload and resolves every field alias so
// the dispatcher only ever sees canonical events. A decode failure is
// returned as is; an unmapped type wraps ErrUnknownEvent.
func Normalize(data []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return normalize(raw, time.Now())
}

func normalize(raw rawEvent, now time.Time) (Event, error) {
	ev := Event{
		ID:         ulid.Make(),
		User:       firstString(raw.UniqueID, raw.User),
		ReceivedAt: now,
	}

	switch strings.ToLower(strings.TrimSpace(raw.Type)) {
	case "like":
		ev.Payload = Like{Count: firstInt(raw.LikeCount, raw.Count, 1)}

	case "comment", "chat":
		ev.Payload = Comment{Text: firstString(raw.Comment, raw.Text)}

	case "follow":
		ev.Payload = Follow{}

	case "social":
		if !strings.Contains(strings.ToLower(raw.DisplayType), "follow") {
			return Event{}, fmt.Errorf("social %q: %w", raw.DisplayType, ErrUnknownEvent)
		}
		ev.Payload = Follow{}

	case "share":
		ev.Payload = Share{}

	case "gift":
		g := Gift{
			Name:     raw.GiftName,
			ID:       raw.GiftID,
			Diamonds: firstInt(raw.DiamondCount, raw.Diamonds),
			Repeat:   firstInt(raw.RepeatCount, raw.RepeatCountSn, 1),
			Action:   GiftAction(raw.Action),
			Team:     raw.Team,
			Count:    raw.Count,
			Large:    raw.IsLarge,
		}
		if raw.Gift != nil {
			g.Name = firstString(g.Name, raw.Gift.Name)
			g.ID = firstInt64(g.ID, raw.Gift.ID)
			g.Diamonds = firstInt(g.Diamonds, raw.Gift.DiamondCount)
		}
		if g.Name == "" {
			g.Name = "Unknown"
		}
		ev.Payload = g

	default:
		return Event{}, fmt.Errorf("type %q: %w", raw.Type, ErrUnknownEvent)
	}

	return ev, nil
}

type eventJSON struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	User       string    `json:"user,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
	Payload    Payload   `json:"payload"`
}

// MarshalJSON renders the relay form viewers receive
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		ID:         e.ID.String(),
		Kind:       e.Kind(),
		User:       e.User,
		ReceivedAt: e.ReceivedAt,
		Payload:    e.Payload,
	})
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstInt64(vals ...int64) int64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
