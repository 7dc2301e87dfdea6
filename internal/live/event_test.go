package live

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNormalizeAliases(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Payload
		user string
	}{
		{"like count", `{"type":"like","likeCount":7,"uniqueId":"ann"}`, Like{Count: 7}, "ann"},
		{"like relay form", `{"type":"like","count":3,"user":"bo"}`, Like{Count: 3}, "bo"},
		{"like without count", `{"type":"like"}`, Like{Count: 1}, ""},
		{"chat", `{"type":"chat","comment":"go pumpkin"}`, Comment{Text: "go pumpkin"}, ""},
		{"comment text", `{"type":"comment","text":"bats"}`, Comment{Text: "bats"}, ""},
		{"social follow", `{"type":"social","displayType":"pm_mt_msg_viewer_follow"}`, Follow{}, ""},
		{"follow", `{"type":"follow","user":"cy"}`, Follow{}, "cy"},
		{"share", `{"type":"share"}`, Share{}, ""},
		{
			"gift connector form",
			`{"type":"gift","giftName":"Rose","diamondCount":1,"giftId":5655,"repeatCount":3}`,
			Gift{Name: "Rose", ID: 5655, Diamonds: 1, Repeat: 3},
			"",
		},
		{
			"gift nested form",
			`{"type":"gift","gift":{"name":"Lion","id":6,"diamond_count":29999},"repeat_count":2}`,
			Gift{Name: "Lion", ID: 6, Diamonds: 29999, Repeat: 2},
			"",
		},
		{
			"gift relay form",
			`{"type":"gift","giftName":"Boo","diamonds":20,"action":"spawn_large","team":"pumpkin","count":1,"isLarge":true}`,
			Gift{Name: "Boo", Diamonds: 20, Repeat: 1, Action: ActionSpawnLarge, Team: "pumpkin", Count: 1, Large: true},
			"",
		},
		{"gift without name", `{"type":"gift"}`, Gift{Name: "Unknown", Repeat: 1}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Normalize([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if ev.Payload != tt.want {
				t.Fatalf("payload = %#v, want %#v", ev.Payload, tt.want)
			}
			if ev.User != tt.user {
				t.Fatalf("user = %q, want %q", ev.User, tt.user)
			}
			if ev.ReceivedAt.IsZero() || ev.ID.Time() == 0 {
				t.Fatal("event not stamped")
			}
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	if _, err := Normalize([]byte(`{"type":"social","displayType":"share"}`)); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("non-follow social: err = %v", err)
	}
	if _, err := Normalize([]byte(`{"type":"roomUser"}`)); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("unknown type: err = %v", err)
	}

	_, err := Normalize([]byte(`{"type":`))
	if err == nil || errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("malformed json: err = %v", err)
	}
}

func TestEventRelayJSON(t *testing.T) {
	ev, err := Normalize([]byte(`{"type":"comment","comment":"hi","uniqueId":"dee"}`))
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}

	var out struct {
		ID      string `json:"id"`
		Kind    string `json:"kind"`
		User    string `json:"user"`
		Payload struct {
			Text string `json:"text"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.ID != ev.ID.String() || out.Kind != "comment" || out.User != "dee" || out.Payload.Text != "hi" {
		t.Fatalf("relay json = %s", data)
	}
	if !strings.Contains(string(data), `"receivedAt"`) {
		t.Fatalf("relay json missing receive time: %s", data)
	}
}
