// Package engine exposes the few-shot classifier to the server and CLI: a
// mutex-guarded facade over the trainer, the live inference loop, and the
// optional sample store, embedder, and head catalog.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/teachable/internal/config"
	"github.com/hyperjump/teachable/internal/embedding"
	"github.com/hyperjump/teachable/internal/head"
	"github.com/hyperjump/teachable/internal/headstore"
	"github.com/hyperjump/teachable/internal/inference"
	"github.com/hyperjump/teachable/internal/models"
	"github.com/hyperjump/teachable/internal/storage"
	"github.com/hyperjump/teachable/internal/trainer"
)

// ErrNoEmbedder is returned by frame operations when no embedder is configured.
var ErrNoEmbedder = errors.New("no embedder configured")

// ErrNoHeadStore is returned by catalog operations when no head store is configured.
var ErrNoHeadStore = errors.New("no head store configured")

// Engine serializes training, head installs, and ticks behind one mutex so
// that a tick never observes a partially installed head.
type Engine struct {
	mu sync.Mutex

	trainer *trainer.Trainer
	loop    *inference.Loop
	policy  trainer.DimensionPolicy

	kind        head.Kind
	linearScale float32

	store    storage.Storage
	embedder embedding.Embedder
	heads    headstore.Store
	logger   *zap.Logger

	sessionID  string
	activeHead string
	frameSkip  error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStorage enables write-through of classes and samples to store.
func WithStorage(s storage.Storage) Option {
	return func(e *Engine) { e.store = s }
}

// WithEmbedder sets the feature extractor used by AddFrame and TickFrame.
func WithEmbedder(emb embedding.Embedder) Option {
	return func(e *Engine) { e.embedder = emb }
}

// WithHeadStore sets the named head catalog.
func WithHeadStore(s headstore.Store) Option {
	return func(e *Engine) { e.heads = s }
}

// NewEngine creates an engine configured from cfg. A nil cfg uses the defaults.
func NewEngine(cfg *config.ClassifierConfig, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = &config.ClassifierConfig{}
	}
	kind, err := head.ParseKind(cfg.HeadType)
	if err != nil {
		return nil, err
	}
	policy, err := trainer.ParseDimensionPolicy(cfg.DimensionPolicy)
	if err != nil {
		return nil, err
	}
	window := cfg.SmoothingWindowOrDefault()
	if window < 0 {
		return nil, fmt.Errorf("smoothing window must not be negative, got %d", window)
	}
	scale := cfg.LinearScale
	if scale == 0 {
		scale = 1
	}

	e := &Engine{
		loop:        inference.NewLoop(inference.Scorer{Strict: cfg.StrictDimensionsOrDefault()}, window),
		policy:      policy,
		kind:        kind,
		linearScale: scale,
		logger:      zap.NewNop(),
		sessionID:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.trainer = e.newTrainer(nil)
	return e, nil
}

func (e *Engine) newTrainer(labels []string) *trainer.Trainer {
	return trainer.New(labels,
		trainer.WithLogger(e.logger),
		trainer.WithDimensionPolicy(e.policy),
	)
}

// NewSession discards the current classes and samples and starts an empty
// session, recorded in the sample store when one is configured.
func (e *Engine) NewSession(ctx context.Context, name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := uuid.NewString()
	if e.store != nil {
		if err := e.store.CreateSession(ctx, &models.Session{ID: id, Name: name}); err != nil {
			return "", fmt.Errorf("create session: %w", err)
		}
	}
	e.sessionID = id
	e.trainer = e.newTrainer(nil)
	e.logger.Info("session started", zap.String("session_id", id), zap.String("name", name))
	return id, nil
}

// Restore rebuilds the trainer from a stored session by replaying its classes
// and samples in insertion order.
func (e *Engine) Restore(ctx context.Context, sessionID string) error {
	if e.store == nil {
		return fmt.Errorf("restore %s: no storage configured", sessionID)
	}
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	classes, err := e.store.ListClasses(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("list classes: %w", err)
	}
	samples, err := e.store.ListSamples(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("list samples: %w", err)
	}

	labels := make([]string, len(classes))
	for i, c := range classes {
		if c.Index != i {
			return fmt.Errorf("restore %s: class indices are not contiguous at %d", sessionID, c.Index)
		}
		labels[i] = c.Label
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.newTrainer(labels)
	for _, s := range samples {
		if err := t.AddSample(s.ClassIndex, s.Embedding); err != nil {
			return fmt.Errorf("restore sample %s: %w", s.ID, err)
		}
	}
	e.trainer = t
	e.sessionID = session.ID
	e.logger.Info("session restored",
		zap.String("session_id", session.ID),
		zap.Int("classes", len(labels)),
		zap.Int("samples", len(samples)),
		zap.Int("dimensions", t.Dimensions()),
	)
	return nil
}

// SessionID returns the current session ID.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// AddClass appends a class and returns its index. The class is stored first;
// when that fails the engine is unchanged.
func (e *Engine) AddClass(ctx context.Context, label string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store != nil {
		next := e.trainer.NumClasses()
		if err := e.store.AddClass(ctx, e.sessionID, models.ClassInfo{Index: next, Label: label}); err != nil {
			return -1, fmt.Errorf("store class: %w", err)
		}
	}
	return e.trainer.AddClass(label), nil
}

// Classes returns the classes with their in-memory sample counts.
func (e *Engine) Classes() []models.ClassInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.classesLocked()
}

func (e *Engine) classesLocked() []models.ClassInfo {
	labels := e.trainer.Labels()
	counts := e.trainer.Counts()
	out := make([]models.ClassInfo, len(labels))
	for i, l := range labels {
		out[i] = models.ClassInfo{Index: i, Label: l, Samples: counts[i]}
	}
	return out
}

// AddSample teaches class with embedding. When the sample changes the
// embedding dimension, stored samples of the session are replaced along with
// the in-memory sums. The sample is stored before the trainer changes, so an
// error leaves the engine and the store as they were.
func (e *Engine) AddSample(ctx context.Context, class int, emb []float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	reset, err := e.trainer.CheckSample(class, emb)
	if err != nil {
		return err
	}
	if e.store != nil {
		sample := &models.Sample{
			ID:         uuid.NewString(),
			SessionID:  e.sessionID,
			ClassIndex: class,
			Embedding:  append([]float32(nil), emb...),
		}
		if reset {
			err = e.store.ReplaceSamples(ctx, sample)
		} else {
			err = e.store.AddSample(ctx, sample)
		}
		if err != nil {
			return fmt.Errorf("store sample: %w", err)
		}
	}
	return e.trainer.AddSample(class, emb)
}

// AddFrame embeds frame and teaches class with the result. The embedder runs
// outside the engine lock.
func (e *Engine) AddFrame(ctx context.Context, class int, frame embedding.Frame) error {
	if e.embedder == nil {
		return ErrNoEmbedder
	}
	emb, err := e.embedder.Embed(ctx, frame)
	if err != nil {
		return fmt.Errorf("embed frame %s: %w", frame.ID, err)
	}
	return e.AddSample(ctx, class, emb)
}

// Finalize builds a head of the given kind from the current samples; an empty
// kind uses the configured head type. The head may be unusable.
func (e *Engine) Finalize(kind head.Kind) *head.Head {
	e.mu.Lock()
	defer e.mu.Unlock()
	if kind == "" {
		kind = e.kind
	}
	if kind == head.KindLinear {
		return e.trainer.FinalizeLinear(e.linearScale)
	}
	return e.trainer.Finalize()
}

// InstallHead makes h the active head. A rejected head leaves the engine unchanged.
func (e *Engine) InstallHead(h *head.Head) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.installLocked(h, "")
}

func (e *Engine) installLocked(h *head.Head, name string) error {
	if err := e.loop.InstallHead(h); err != nil {
		e.logger.Warn("head rejected", zap.String("name", name), zap.Error(err))
		return err
	}
	e.activeHead = name
	e.frameSkip = nil
	e.logger.Info("head installed",
		zap.String("name", name),
		zap.String("type", string(h.Kind)),
		zap.Int("classes", len(h.Classes)),
		zap.Int("dimensions", h.Dimensions()),
	)
	return nil
}

// ActiveHead returns a copy of the installed head, nil when none, and the
// catalog name it was installed from.
func (e *Engine) ActiveHead() (*head.Head, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.loop.Head()
	if h == nil {
		return nil, ""
	}
	return h.Clone(), e.activeHead
}

// SaveHead stores h in the head catalog under name.
func (e *Engine) SaveHead(ctx context.Context, name string, h *head.Head) error {
	if e.heads == nil {
		return ErrNoHeadStore
	}
	return e.heads.Save(ctx, name, h)
}

// InstallNamed loads name from the head catalog and installs it. Like
// InstallHead, it leaves the loop Ready.
func (e *Engine) InstallNamed(ctx context.Context, name string) error {
	h, err := e.loadNamed(ctx, name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.installLocked(h, name)
}

// ReloadNamed reinstalls name from the head catalog. A running loop keeps
// running under the new head; a rejected head leaves everything unchanged.
func (e *Engine) ReloadNamed(ctx context.Context, name string) error {
	h, err := e.loadNamed(ctx, name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	wasRunning := e.loop.State() == inference.StateRunning
	if err := e.installLocked(h, name); err != nil {
		return err
	}
	if wasRunning {
		e.loop.Start()
	}
	return nil
}

func (e *Engine) loadNamed(ctx context.Context, name string) (*head.Head, error) {
	if e.heads == nil {
		return nil, ErrNoHeadStore
	}
	h, err := e.heads.Load(ctx, name)
	if err != nil {
		e.logger.Warn("head load failed", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	return h, nil
}

// ListHeads returns the catalog names.
func (e *Engine) ListHeads(ctx context.Context) ([]string, error) {
	if e.heads == nil {
		return nil, ErrNoHeadStore
	}
	return e.heads.List(ctx)
}

// Start begins producing predictions. It has no effect without a head.
func (e *Engine) Start() inference.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loop.Start()
}

// Pause suspends predictions.
func (e *Engine) Pause() inference.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loop.Pause()
}

// State returns the loop state.
func (e *Engine) State() inference.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loop.State()
}

// Tick scores one embedding. It returns false when the tick was skipped; the
// reason is available from LastSkip.
func (e *Engine) Tick(emb []float32) (inference.Prediction, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frameSkip = nil
	p, ok := e.loop.Tick(emb)
	if !ok {
		e.logger.Debug("tick skipped", zap.Error(e.loop.LastSkip()))
	}
	return p, ok
}

// TickFrame embeds frame and scores it. Embedder failures are skips, not errors.
func (e *Engine) TickFrame(ctx context.Context, frame embedding.Frame) (inference.Prediction, bool) {
	if e.embedder == nil {
		e.recordFrameSkip(ErrNoEmbedder)
		return inference.Prediction{}, false
	}
	emb, err := e.embedder.Embed(ctx, frame)
	if err != nil {
		e.recordFrameSkip(err)
		return inference.Prediction{}, false
	}
	return e.Tick(emb)
}

func (e *Engine) recordFrameSkip(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frameSkip = err
	e.logger.Debug("tick skipped", zap.Error(err))
}

// LastSkip returns why the most recent tick produced nothing, or nil.
func (e *Engine) LastSkip() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSkipLocked()
}

func (e *Engine) lastSkipLocked() error {
	if e.frameSkip != nil {
		return e.frameSkip
	}
	return e.loop.LastSkip()
}

// Status summarizes the engine. Stored sample counts are included when a
// sample store is configured.
func (e *Engine) Status(ctx context.Context) models.Status {
	e.mu.Lock()
	st := models.Status{
		SessionID:       e.sessionID,
		State:           e.loop.State().String(),
		Dimensions:      e.trainer.Dimensions(),
		Classes:         e.classesLocked(),
		SmoothingWindow: e.loop.SmoothingWindow(),
		ActiveHead:      e.activeHead,
	}
	if h := e.loop.Head(); h != nil {
		st.HeadKind = string(h.Kind)
		st.HeadClasses = append([]string(nil), h.Classes...)
		st.HeadDimensions = h.Dimensions()
	}
	if p, ok := e.loop.Last(); ok {
		st.LastLabel = p.Label
		st.LastScore = p.Score
	}
	if err := e.lastSkipLocked(); err != nil {
		st.LastSkip = err.Error()
	}
	sessionID := e.sessionID
	e.mu.Unlock()

	if e.store != nil {
		if n, err := e.store.CountSamples(ctx, sessionID); err == nil {
			st.StoredSamples = n
		} else {
			e.logger.Debug("count samples failed", zap.Error(err))
		}
	}
	return st
}
