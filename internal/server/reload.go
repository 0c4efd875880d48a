package server

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/teachable/internal/engine"
	"github.com/hyperjump/teachable/internal/headstore"
)

// HeadReloader reinstalls the active head when its catalog file changes.
// Its methods are watcher callbacks.
type HeadReloader struct {
	engine   *engine.Engine
	fallback string
	logger   *zap.Logger
}

// NewHeadReloader returns a reloader that follows the engine's installed head,
// or fallback when no named head is installed yet.
func NewHeadReloader(eng *engine.Engine, fallback string, logger *zap.Logger) *HeadReloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeadReloader{engine: eng, fallback: fallback, logger: logger}
}

func (r *HeadReloader) target() string {
	if _, name := r.engine.ActiveHead(); name != "" {
		return name
	}
	return r.fallback
}

// OnChange reinstalls the head stored at path if it is the active one; a
// running loop keeps running. A bad file is logged and the current head stays
// installed.
func (r *HeadReloader) OnChange(path string) {
	name, ok := headstore.NameFromPath(path)
	if !ok || name != r.target() {
		return
	}
	if err := r.engine.ReloadNamed(context.Background(), name); err != nil {
		r.logger.Warn("head reload rejected", zap.String("name", name), zap.Error(err))
		return
	}
	r.logger.Info("head reloaded", zap.String("name", name))
}

// OnRemove logs removal of the active head file; the installed head is kept.
func (r *HeadReloader) OnRemove(path string) {
	name, ok := headstore.NameFromPath(path)
	if !ok || name != r.target() {
		return
	}
	r.logger.Warn("active head file removed, keeping installed head", zap.String("name", name))
}
