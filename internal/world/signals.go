package world

// Cue is a discrete audio trigger
type Cue string

const (
	CueCollision Cue = "collision"
	CueGoal      Cue = "goal"
	CueVictory   Cue = "victory"
	CueOvertime  Cue = "overtime"
)

// BannerChannel selects which overlay a banner goes to
type BannerChannel string

const (
	BannerEvent BannerChannel = "event"
	BannerMega  BannerChannel = "mega"
)

type Banner struct {
	Text    string        `json:"text" msgpack:"text"`
	Seconds float64       `json:"seconds" msgpack:"seconds"`
	Channel BannerChannel `json:"channel" msgpack:"channel"`
}

// Signal is either a cue or a banner, stamped with the sim clock
type Signal struct {
	At     float64 `json:"at" msgpack:"at"`
	Cue    Cue     `json:"cue,omitempty" msgpack:"cue,omitempty"`
	Banner *Banner `json:"banner,omitempty" msgpack:"banner,omitempty"`
}

const maxPendingSignals = 1024

func (w *World) pushSignal(s Signal) {
	s.At = w.clock
	if len(w.signals) >= maxPendingSignals {
		// nobody is draining, keep the newest
		copy(w.signals, w.signals[1:])
		w.signals = w.signals[:len(w.signals)-1]
	}
	w.signals = append(w.signals, s)
}

func (w *World) cue(c Cue) {
	w.pushSignal(Signal{Cue: c})
}

func (w *World) banner(ch BannerChannel, text string, seconds float64) {
	w.pushSignal(Signal{Banner: &Banner{Text: text, Seconds: seconds, Channel: ch}})
}

// DrainSignals hands over every signal emitted since the last call
func (w *World) DrainSignals() []Signal {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := w.signals
	w.signals = nil
	return out
}
