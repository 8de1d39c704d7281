package handlers

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/therapy-console/internal/format"
	"github.com/hongminglow/therapy-console/internal/http/respond"
	"github.com/hongminglow/therapy-console/internal/models"
)

// SysConfigHandler serves the chat assistant speech settings.
type SysConfigHandler struct {
	mu  sync.RWMutex
	cfg models.SysConfigInfo
}

func NewSysConfigHandler(cfg models.SysConfigInfo) *SysConfigHandler {
	return &SysConfigHandler{cfg: cfg}
}

func (h *SysConfigHandler) Routes(r chi.Router) {
	r.Get("/", h.handleGet)
	r.Put("/", h.handlePut)
}

func (h *SysConfigHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	respond.OK(w, "success", h.cfg)
}

func (h *SysConfigHandler) handlePut(w http.ResponseWriter, r *http.Request) {
	var cfg models.SysConfigInfo
	if !decodeJSON(w, r, &cfg) {
		return
	}
	switch cfg.TtsSetting.SynthesizerSide {
	case format.SynthesizerClient, format.SynthesizerServer:
	default:
		respond.Error(w, http.StatusBadRequest, "synthesizer_side must be client or server")
		return
	}
	if cfg.ResponseShowType != 0 && format.OptionLabel(format.ResponseShowTypeOptions, cfg.ResponseShowType) == format.Empty {
		respond.Error(w, http.StatusBadRequest, "unknown responseShowType")
		return
	}
	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
	respond.OK(w, "success", cfg)
}
