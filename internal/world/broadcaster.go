package world

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// Broadcaster owns the simulation clock: it ticks the world, then pushes
// binary snapshots and JSON signal frames to every connected viewer.
type Broadcaster struct {
	world          *World
	log            *zap.Logger
	clients        map[*websocket.Conn]bool
	register       chan *websocket.Conn
	unregister     chan *websocket.Conn
	done           chan struct{}
	updateTicker   *time.Ticker // Dynamic for speed changes
	updateChan     chan struct{} // Signal to reset ticker
	mu             sync.RWMutex
	currentSpeed   float64
	paused         bool
	baseInterval   time.Duration // tick interval at 1x
	broadcastEvery time.Duration
	maxStep        time.Duration
	writeTimeout   time.Duration
	lastTick       time.Time
	WriteMu        map[*websocket.Conn]*sync.Mutex // Per-conn write locks
}

type BroadcasterOptions struct {
	TickRate      int // simulation frames per second at 1x
	BroadcastRate int // snapshots per second
	MaxStep       time.Duration
	WriteTimeout  time.Duration
}

// SignalMessage carries cues and banners drained after a frame
type SignalMessage struct {
	Type    string   `json:"type"`
	Signals []Signal `json:"signals"`
}

type StatusMessage struct {
	Type    string  `json:"type"`
	Speed   float64 `json:"speed"`
	Paused  bool    `json:"paused"`
	Clients int     `json:"clients"`
	Phase   string  `json:"phase"`
	Tally   Tally   `json:"tally"`
}

func NewBroadcaster(w *World, log *zap.Logger, opts BroadcasterOptions) *Broadcaster {
	if opts.TickRate <= 0 {
		opts.TickRate = 60
	}
	if opts.BroadcastRate <= 0 {
		opts.BroadcastRate = 20
	}
	if opts.MaxStep <= 0 {
		opts.MaxStep = 250 * time.Millisecond
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	b := &Broadcaster{
		world:          w,
		log:            log.Named("broadcaster"),
		clients:        make(map[*websocket.Conn]bool),
		register:       make(chan *websocket.Conn),
		unregister:     make(chan *websocket.Conn),
		done:           make(chan struct{}),
		updateChan:     make(chan struct{}, 1), // Buffered to avoid blocking
		currentSpeed:   1.0,
		baseInterval:   time.Second / time.Duration(opts.TickRate),
		broadcastEvery: time.Second / time.Duration(opts.BroadcastRate),
		maxStep:        opts.MaxStep,
		writeTimeout:   opts.WriteTimeout,
		WriteMu:        make(map[*websocket.Conn]*sync.Mutex),
	}

	b.resetUpdateTicker()
	return b
}

func (b *Broadcaster) resetUpdateTicker() {
	if b.updateTicker != nil {
		b.updateTicker.Stop()
	}

	b.mu.RLock()
	speed := b.currentSpeed
	b.mu.RUnlock()

	interval := time.Duration(float64(b.baseInterval) / speed)
	if interval < 2*time.Millisecond {
		interval = 2 * time.Millisecond // Min for high speeds (avoid overload)
	} else if interval > time.Second {
		interval = time.Second
	}
	b.updateTicker = time.NewTicker(interval)
	b.log.Debug("update ticker reset", zap.Duration("interval", interval), zap.Float64("speed", speed))
}

func (b *Broadcaster) Run(ctx context.Context) {
	broadcastTicker := time.NewTicker(b.broadcastEvery)
	defer func() {
		broadcastTicker.Stop()
		if b.updateTicker != nil {
			b.updateTicker.Stop()
		}
		close(b.done)
		b.closeAll()
	}()

	b.lastTick = time.Now()
	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-b.register:
			b.mu.Lock()
			b.clients[conn] = true
			b.WriteMu[conn] = &sync.Mutex{}
			b.mu.Unlock()

			// Send initial world state
			if err := b.writeTo(conn, websocket.BinaryMessage, b.encodeSnapshot()); err != nil {
				b.log.Warn("initial send failed", zap.Error(err))
				b.drop(conn)
				continue
			}
			b.sendStatusTo(conn)

		case conn := <-b.unregister:
			b.drop(conn)

		case <-broadcastTicker.C:
			b.BroadcastSnapshot()

		case now := <-b.updateTicker.C:
			b.tick(now)

		case <-b.updateChan:
			b.resetUpdateTicker()
		}
	}
}

func (b *Broadcaster) tick(now time.Time) {
	b.mu.RLock()
	paused := b.paused
	speed := b.currentSpeed
	b.mu.RUnlock()

	elapsed := now.Sub(b.lastTick)
	b.lastTick = now
	if paused {
		return
	}
	if elapsed > b.maxStep {
		elapsed = b.maxStep
	}

	b.step(elapsed.Seconds() * speed)

	if signals := b.world.DrainSignals(); len(signals) > 0 {
		b.BroadcastJSON(SignalMessage{Type: "signal", Signals: signals})
	}
}

// step runs one frame and keeps the loop alive if the frame blows up
func (b *Broadcaster) step(dt float64) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("PANIC in world update",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	b.world.Update(dt)
}

func (b *Broadcaster) Register(conn *websocket.Conn) {
	select {
	case b.register <- conn:
	case <-b.done:
		conn.Close()
	}
}

func (b *Broadcaster) Unregister(conn *websocket.Conn) {
	select {
	case b.unregister <- conn:
	case <-b.done:
	}
}

func (b *Broadcaster) drop(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[conn]; ok {
		delete(b.clients, conn)
		delete(b.WriteMu, conn)
		conn.Close()
	}
}

func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.clients {
		conn.Close()
		delete(b.clients, conn)
		delete(b.WriteMu, conn)
	}
}

func (b *Broadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Set speed and reset ticker
func (b *Broadcaster) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	b.mu.Lock()
	b.currentSpeed = speed
	b.mu.Unlock()

	select {
	case b.updateChan <- struct{}{}:

	default:
		// Already pending, skip
	}

	b.BroadcastStatus()
}

// Toggle pause
func (b *Broadcaster) TogglePause() {
	b.mu.Lock()
	b.paused = !b.paused
	b.mu.Unlock()
	b.BroadcastStatus()
}

func (b *Broadcaster) status() StatusMessage {
	b.mu.RLock()
	msg := StatusMessage{
		Type:    "status",
		Speed:   b.currentSpeed,
		Paused:  b.paused,
		Clients: len(b.clients),
	}
	b.mu.RUnlock()

	msg.Phase = b.world.Phase().String()
	msg.Tally = b.world.Tally()
	return msg
}

func (b *Broadcaster) Status() StatusMessage {
	return b.status()
}

// Send status to a single client
func (b *Broadcaster) sendStatusTo(conn *websocket.Conn) {
	b.SendJSON(conn, b.status())
}

func (b *Broadcaster) BroadcastStatus() {
	b.BroadcastJSON(b.status())
}

func (b *Broadcaster) encodeSnapshot() []byte {
	snap := b.world.Snapshot()
	data, err := msgpack.Marshal(&snap)
	if err != nil {
		b.log.Error("snapshot marshal failed", zap.Error(err))
		return nil
	}
	return data
}

func (b *Broadcaster) BroadcastSnapshot() {
	data := b.encodeSnapshot()
	if data == nil {
		return
	}
	b.broadcast(websocket.BinaryMessage, data)
}

// BroadcastJSON sends v as a text frame to every viewer
func (b *Broadcaster) BroadcastJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		b.log.Error("broadcast marshal failed", zap.Error(err))
		return
	}
	b.broadcast(websocket.TextMessage, data)
}

// SendJSON replies to a single viewer
func (b *Broadcaster) SendJSON(conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		b.log.Error("reply marshal failed", zap.Error(err))
		return
	}
	if err := b.writeTo(conn, websocket.TextMessage, data); err != nil {
		b.log.Debug("reply send failed", zap.Error(err))
		go b.Unregister(conn)
	}
}

func (b *Broadcaster) broadcast(msgType int, data []byte) {
	b.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(b.clients))
	for conn := range b.clients {
		conns = append(conns, conn)
	}
	b.mu.RUnlock()

	for _, conn := range conns {
		if err := b.writeTo(conn, msgType, data); err != nil {
			b.log.Debug("broadcast send failed", zap.Error(err))
			// Defer cleanup to unregister channel
			go b.Unregister(conn)
		}
	}
}

func (b *Broadcaster) writeTo(conn *websocket.Conn, msgType int, data []byte) error {
	b.mu.RLock()
	mu, ok := b.WriteMu[conn]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
	return conn.WriteMessage(msgType, data)
}
