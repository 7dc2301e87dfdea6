package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Scrimzay/livebattle/internal/live"
	"github.com/Scrimzay/livebattle/internal/world"
)

const maxMessageSize = 64 << 10

type BaseAction struct {
	Action string `json:"action"`
}

type SpeedAction struct {
	Action     string  `json:"action"`
	Multiplier float64 `json:"multiplier"`
}

// EventAction lets a viewer inject a simulated platform event
type EventAction struct {
	Action string          `json:"action"`
	Event  json.RawMessage `json:"event"`
}

type ActionReply struct {
	Action string `json:"action"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	ID     string `json:"id,omitempty"`
}

func newUpgrader(origin string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if origin == "" || origin == "*" {
				return true
			}
			o := r.Header.Get("Origin")
			return o == "" || o == origin
		},
	}
}

func HandleWebsocket(broadcaster *world.Broadcaster, gameWorld *world.World, relay *Relay, origin string, log *zap.Logger) gin.HandlerFunc {
	upgrader := newUpgrader(origin)

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("upgrade failed", zap.Error(err))
			return
		}
		conn.SetReadLimit(maxMessageSize)

		broadcaster.Register(conn)
		log.Debug("viewer connected", zap.String("remote", conn.RemoteAddr().String()))

		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				broadcaster.Unregister(conn)
				break
			}
			if msgType != websocket.TextMessage {
				continue
			}

			var base BaseAction
			if err := json.Unmarshal(msg, &base); err != nil {
				log.Debug("bad viewer message", zap.Error(err))
				continue
			}

			switch base.Action {
			case "start":
				gameWorld.StartRound()
				broadcaster.BroadcastStatus()

			case "stop":
				gameWorld.Stop()
				broadcaster.BroadcastStatus()

			case "event":
				var action EventAction
				if err := json.Unmarshal(msg, &action); err != nil || len(action.Event) == 0 {
					broadcaster.SendJSON(conn, ActionReply{Action: "event", Error: "missing event"})
					continue
				}

				ev, err := relay.Ingest(action.Event)
				if err != nil {
					if !errors.Is(err, live.ErrUnknownEvent) {
						log.Debug("viewer event rejected", zap.Error(err))
					}
					broadcaster.SendJSON(conn, ActionReply{Action: "event", Error: err.Error()})
					continue
				}
				broadcaster.SendJSON(conn, ActionReply{Action: "event", OK: true, ID: ev.ID.String()})

			case "set_speed":
				var speed SpeedAction
				json.Unmarshal(msg, &speed)
				if speed.Multiplier > 0 {
					broadcaster.SetSpeed(speed.Multiplier)
				}

			case "toggle_pause":
				broadcaster.TogglePause()

			default:
				log.Debug("unknown viewer action", zap.String("action", base.Action))
			}
		}
	}
}
