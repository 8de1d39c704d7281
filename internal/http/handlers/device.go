package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/therapy-console/internal/http/respond"
	"github.com/hongminglow/therapy-console/internal/middleware"
	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/models/dto"
	"github.com/hongminglow/therapy-console/internal/storage"
)

// DeviceHandler serves the REST style device endpoint.
type DeviceHandler struct {
	store  storage.RecordStore
	logger *slog.Logger
	now    func() time.Time
}

func NewDeviceHandler(store storage.RecordStore, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{store: store, logger: logger.With("resource", string(storage.KindDevice)), now: time.Now}
}

// Routes is meant for chi's Route(base, fn).
func (h *DeviceHandler) Routes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleAdd)
	r.Put("/", h.handleUpdate)
	r.Delete("/", h.handleDelete)
}

func (h *DeviceHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := dto.ListParams{
		PageNum:  atoiOr(q.Get("pageNum"), 1),
		PageSize: atoiOr(q.Get("pageSize"), dto.DefaultPageSize),
	}
	filter := map[string]string{}
	for _, key := range []string{"picoNumber", "status"} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			filter[key] = v
		}
	}

	rows, total, err := h.store.List(r.Context(), storage.KindDevice, storage.Query{Page: params.Page(), Filter: filter})
	if err != nil {
		storeError(w, h.logger, "list devices", err)
		return
	}
	devices := make([]models.Device, 0, len(rows))
	for _, raw := range rows {
		var d models.Device
		if err := json.Unmarshal(raw, &d); err != nil {
			h.logger.Warn("skipping undecodable device", "error", err)
			continue
		}
		devices = append(devices, d)
	}
	respond.List(w, devices, total)
}

func (h *DeviceHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var d models.Device
	if !decodeJSON(w, r, &d) {
		return
	}
	if strings.TrimSpace(d.PicoNumber) == "" {
		respond.Error(w, http.StatusBadRequest, "picoNumber is required")
		return
	}
	id, err := h.store.NextID(r.Context(), storage.KindDevice)
	if err != nil {
		storeError(w, h.logger, "assign device id", err)
		return
	}
	now := h.now().UTC().Format(time.RFC3339)
	d.ID = id
	d.CreatedTime, d.UpdatedTime = now, now
	if claims, ok := middleware.ClaimsFrom(r.Context()); ok {
		d.CreatedUserID, _ = claims.UserID()
		d.CreatedUserName = claims.UserName
	}
	if !h.save(w, r, d, true) {
		return
	}
	h.logger.Info("device added", "id", d.ID, "pico_number", d.PicoNumber)
	respond.OK(w, "success", d)
}

func (h *DeviceHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var d models.Device
	if !decodeJSON(w, r, &d) {
		return
	}
	if d.ID == 0 {
		respond.Error(w, http.StatusBadRequest, "id is required")
		return
	}
	d.UpdatedTime = h.now().UTC().Format(time.RFC3339)
	if !h.save(w, r, d, false) {
		return
	}
	respond.OK(w, "success", d)
}

func (h *DeviceHandler) save(w http.ResponseWriter, r *http.Request, d models.Device, create bool) bool {
	body, err := json.Marshal(d)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid device")
		return false
	}
	id := strconv.FormatInt(d.ID, 10)
	if create {
		err = h.store.Create(r.Context(), storage.KindDevice, id, body)
	} else {
		err = h.store.Update(r.Context(), storage.KindDevice, id, body)
	}
	if err != nil {
		storeError(w, h.logger, "save device", err)
		return false
	}
	return true
}

// handleDelete accepts repeated or comma separated idList values.
func (h *DeviceHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, v := range r.URL.Query()["idList"] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, part)
			}
		}
	}
	if len(ids) == 0 {
		respond.Error(w, http.StatusBadRequest, "idList is required")
		return
	}
	n, err := h.store.Delete(r.Context(), storage.KindDevice, ids)
	if err != nil {
		storeError(w, h.logger, "delete devices", err)
		return
	}
	h.logger.Info("devices deleted", "requested", len(ids), "deleted", n)
	respond.OK(w, "success", map[string]int64{"deleted": n})
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
