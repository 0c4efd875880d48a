package inference

import (
	"fmt"

	"github.com/hyperjump/teachable/internal/head"
)

// State is the lifecycle state of a Loop.
type State int

const (
	// StateIdle means no usable head is installed.
	StateIdle State = iota
	// StateReady means a head is installed but predictions have not started.
	StateReady
	// StateRunning means Tick produces predictions.
	StateRunning
	// StatePaused means predictions are suspended.
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Prediction is the output of one successful tick.
type Prediction struct {
	// Label is the smoothed class label.
	Label string `json:"label"`
	// Class is the smoothed class index.
	Class int `json:"class_index"`
	// Score is the raw best score of this tick's embedding.
	Score float32 `json:"score"`
	// RawClass is the unsmoothed best class of this tick.
	RawClass int `json:"raw_class_index"`
}

// Loop ties a Scorer and a Smoother to the installed head. It is not safe
// for concurrent use: InstallHead and Tick must not interleave without
// external locking.
type Loop struct {
	scorer   Scorer
	smoother *Smoother
	head     *head.Head
	state    State
	last     Prediction
	hasLast  bool
	lastSkip error
}

// NewLoop returns an idle loop with the given scorer and smoothing window.
func NewLoop(scorer Scorer, window int) *Loop {
	return &Loop{scorer: scorer, smoother: NewSmoother(window)}
}

// InstallHead validates h and makes a copy of it the active head. On failure
// the loop keeps its current head and state. On success the loop becomes
// Ready, and the smoothing window and last prediction are cleared.
func (l *Loop) InstallHead(h *head.Head) error {
	if err := h.Validate(); err != nil {
		return err
	}
	l.head = h.Clone()
	l.state = StateReady
	l.smoother.Clear()
	l.last = Prediction{}
	l.hasLast = false
	l.lastSkip = nil
	return nil
}

// Start moves Ready or Paused to Running. It has no effect when Idle.
func (l *Loop) Start() State {
	if l.state == StateReady || l.state == StatePaused {
		l.state = StateRunning
	}
	return l.state
}

// Pause moves Running to Paused.
func (l *Loop) Pause() State {
	if l.state == StateRunning {
		l.state = StatePaused
	}
	return l.state
}

// Tick scores embedding and returns the smoothed prediction. It returns
// false, and records the reason for LastSkip, when the loop is not Running
// or the embedding cannot be scored. Tick never fails otherwise.
func (l *Loop) Tick(embedding []float32) (Prediction, bool) {
	if l.state != StateRunning {
		l.lastSkip = ErrNotRunning
		return Prediction{}, false
	}
	res, err := l.scorer.Score(l.head, embedding)
	if err != nil {
		l.lastSkip = err
		return Prediction{}, false
	}
	class := l.smoother.Push(res.Class)
	p := Prediction{
		Label:    l.head.Classes[class],
		Class:    class,
		Score:    res.Score,
		RawClass: res.Class,
	}
	l.last = p
	l.hasLast = true
	l.lastSkip = nil
	return p, true
}

// State returns the current state.
func (l *Loop) State() State {
	return l.state
}

// Head returns the installed head, nil when Idle. Callers must not modify it.
func (l *Loop) Head() *head.Head {
	return l.head
}

// Last returns the most recent prediction since the head was installed.
func (l *Loop) Last() (Prediction, bool) {
	return l.last, l.hasLast
}

// LastSkip returns why the most recent tick produced nothing, or nil if it
// produced a prediction.
func (l *Loop) LastSkip() error {
	return l.lastSkip
}

// SmoothingWindow returns the configured window size.
func (l *Loop) SmoothingWindow() int {
	return l.smoother.Size()
}
