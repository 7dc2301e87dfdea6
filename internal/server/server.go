package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Scrimzay/livebattle/internal/live"
	"github.com/Scrimzay/livebattle/internal/world"
)

type Options struct {
	Log          *zap.Logger
	ClientOrigin string // "*" allows any origin
	StaticDir    string
	Username     string // followed platform account, empty in simulation mode
	Mode         string
}

// Relay fans inbound events out to viewers and into the arena
type Relay struct {
	broadcaster *world.Broadcaster
	dispatcher  *live.Dispatcher
	log         *zap.Logger
}

// RelayMessage is the text frame viewers get for every accepted event
type RelayMessage struct {
	Type  string     `json:"type"`
	Event live.Event `json:"event"`
}

func NewRelay(broadcaster *world.Broadcaster, dispatcher *live.Dispatcher, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{broadcaster: broadcaster, dispatcher: dispatcher, log: log.Named("relay")}
}

// Ingest normalizes one raw payload, relays it and applies it
func (r *Relay) Ingest(raw []byte) (live.Event, error) {
	ev, err := live.Normalize(raw)
	if err != nil {
		return live.Event{}, err
	}

	r.log.Debug("event received",
		zap.Stringer("id", ev.ID),
		zap.String("kind", string(ev.Kind())),
		zap.String("user", ev.User))

	r.broadcaster.BroadcastJSON(RelayMessage{Type: "event", Event: ev})
	r.dispatcher.Handle(ev)
	return ev, nil
}

func SetupRouter(broadcaster *world.Broadcaster, gameWorld *world.World, relay *Relay, opts Options) *gin.Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log.Named("http")), cors(opts.ClientOrigin))
	if opts.StaticDir != "" {
		r.Static("/static", opts.StaticDir)
	}

	r.GET("/health", healthHandler(opts))
	r.GET("/api/status", statusHandler(broadcaster, gameWorld, opts))
	r.POST("/api/events", eventsHandler(relay, log))
	r.POST("/api/round/start", startRoundHandler(gameWorld, broadcaster))

	r.GET("/ws", HandleWebsocket(broadcaster, gameWorld, relay, opts.ClientOrigin, log.Named("ws")))

	return r
}

func healthHandler(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":       true,
			"mode":     opts.Mode,
			"username": usernameOr(opts.Username, "none"),
		})
	}
}

func statusHandler(broadcaster *world.Broadcaster, gameWorld *world.World, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"server": "online",
			"live": gin.H{
				"username": usernameOr(opts.Username, "simulation-mode"),
			},
			"clients":  broadcaster.Clients(),
			"sim":      broadcaster.Status(),
			"snapshot": gameWorld.Snapshot(),
		})
	}
}

// eventsHandler accepts connector posts. Anything that decodes is taken;
// unmapped types are acknowledged and dropped.
func eventsHandler(relay *Relay, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		ev, err := relay.Ingest(body)
		switch {
		case errors.Is(err, live.ErrUnknownEvent):
			log.Info("unmapped event ignored", zap.Error(err))
			c.JSON(http.StatusAccepted, gin.H{"accepted": false, "reason": err.Error()})

		case err != nil:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		default:
			c.JSON(http.StatusAccepted, gin.H{
				"accepted": true,
				"id":       ev.ID.String(),
				"kind":     ev.Kind(),
			})
		}
	}
}

func startRoundHandler(gameWorld *world.World, broadcaster *world.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameWorld.StartRound()
		broadcaster.BroadcastStatus()
		c.JSON(http.StatusOK, gin.H{"phase": gameWorld.Phase().String()})
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// a websocket handler only returns once the viewer leaves
		if c.IsWebsocket() {
			log.Debug("websocket closed", zap.String("remote", c.ClientIP()), zap.Duration("held", time.Since(start)))
			return
		}
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func cors(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func usernameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
