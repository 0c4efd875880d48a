package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/teachable/internal/engine"
	"github.com/hyperjump/teachable/internal/head"
	"github.com/hyperjump/teachable/internal/headstore"
	"github.com/hyperjump/teachable/internal/inference"
	"github.com/hyperjump/teachable/internal/storage"
	"github.com/hyperjump/teachable/internal/trainer"
	"github.com/hyperjump/teachable/internal/vector"
)

const maxHeadBytes = 64 << 20

type addClassRequest struct {
	Label string `json:"label"`
}

type addSampleRequest struct {
	ClassIndex int       `json:"class_index"`
	Embedding  []float32 `json:"embedding"`
}

type finalizeRequest struct {
	Type    string `json:"type"`
	Install bool   `json:"install"`
	SaveAs  string `json:"save_as"`
}

type tickRequest struct {
	Embedding []float32 `json:"embedding"`
}

type skipResponse struct {
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.engine.Status(r.Context())
	if s.dbPath != "" || s.headsDir != "" {
		if usage, err := storage.MeasureDisk(s.dbPath, s.headsDir); err == nil {
			st.Disk = &usage
		} else {
			s.logger.Debug("disk usage failed", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleListClasses(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"classes": s.engine.Classes()})
}

func (s *Server) handleAddClass(w http.ResponseWriter, r *http.Request) {
	var req addClassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	idx, err := s.engine.AddClass(r.Context(), req.Label)
	if err != nil {
		s.logger.Error("add class failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("class added", zap.String("label", req.Label), zap.Int("class_index", idx))
	s.respondJSON(w, http.StatusCreated, map[string]int{"class_index": idx})
}

func (s *Server) handleAddSample(w http.ResponseWriter, r *http.Request) {
	var req addSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.engine.AddSample(r.Context(), req.ClassIndex, req.Embedding); err != nil {
		s.respondEngineError(w, "add sample failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":     "added",
		"dimensions": len(req.Embedding),
	})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var kind head.Kind
	if req.Type != "" {
		k, err := head.ParseKind(req.Type)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		kind = k
	}
	h := s.engine.Finalize(kind)
	data, err := head.Marshal(h)
	if err != nil {
		s.respondEngineError(w, "finalize failed", err)
		return
	}
	if req.SaveAs != "" {
		if err := s.engine.SaveHead(r.Context(), req.SaveAs, h); err != nil {
			s.respondEngineError(w, "save head failed", err)
			return
		}
	}
	if req.Install {
		if err := s.engine.InstallHead(h); err != nil {
			s.respondEngineError(w, "install head failed", err)
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"head":      json.RawMessage(data),
		"installed": req.Install,
		"saved_as":  req.SaveAs,
	})
}

func (s *Server) handleGetHead(w http.ResponseWriter, r *http.Request) {
	h, _ := s.engine.ActiveHead()
	if h == nil {
		s.respondError(w, http.StatusNotFound, "no head installed")
		return
	}
	data, err := head.Marshal(h)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handlePutHead(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxHeadBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h, err := head.Unmarshal(data)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.InstallHead(h); err != nil {
		s.respondEngineError(w, "install head failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "installed", "state": s.engine.State().String()})
}

func (s *Server) handleListHeads(w http.ResponseWriter, r *http.Request) {
	names, err := s.engine.ListHeads(r.Context())
	if err != nil {
		s.respondEngineError(w, "list heads failed", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string][]string{"heads": names})
}

func (s *Server) handleInstallNamed(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.engine.InstallNamed(r.Context(), name); err != nil {
		s.respondEngineError(w, "install head failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "installed", "name": name, "state": s.engine.State().String()})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"state": s.engine.Start().String()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"state": s.engine.Pause().String()})
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		s.respondError(w, http.StatusTooManyRequests, "tick rate exceeded")
		return
	}
	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, ok := s.engine.Tick(req.Embedding)
	if !ok {
		reason := "skipped"
		if err := s.engine.LastSkip(); err != nil {
			reason = err.Error()
		}
		s.respondJSON(w, http.StatusOK, skipResponse{Skipped: true, Reason: reason})
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, headstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNoHeadStore), errors.Is(err, engine.ErrNoEmbedder):
		return http.StatusNotImplemented
	case errors.Is(err, trainer.ErrInvalidClass),
		errors.Is(err, trainer.ErrEmptySample),
		errors.Is(err, vector.ErrDimensionMismatch),
		errors.Is(err, head.ErrHeadNotReady),
		errors.Is(err, head.ErrUnknownKind),
		errors.Is(err, inference.ErrEmptyEmbedding),
		errors.Is(err, headstore.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondEngineError(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
