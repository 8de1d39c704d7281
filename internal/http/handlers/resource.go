package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hongminglow/therapy-console/internal/http/respond"
	"github.com/hongminglow/therapy-console/internal/models/dto"
	"github.com/hongminglow/therapy-console/internal/storage"
)

// IDField reads and assigns the primary key of T.
type IDField[T any] struct {
	get    func(*T) string
	assign func(ctx context.Context, s storage.RecordStore, kind storage.Kind, rec *T) error
}

// Int64ID keys records by a numeric field drawn from the store's counter.
func Int64ID[T any](field func(*T) *int64) IDField[T] {
	return IDField[T]{
		get: func(rec *T) string {
			if id := *field(rec); id != 0 {
				return strconv.FormatInt(id, 10)
			}
			return ""
		},
		assign: func(ctx context.Context, s storage.RecordStore, kind storage.Kind, rec *T) error {
			id, err := s.NextID(ctx, kind)
			if err != nil {
				return err
			}
			*field(rec) = id
			return nil
		},
	}
}

// StringID keys records by a string field filled with a random UUID.
func StringID[T any](field func(*T) *string) IDField[T] {
	return IDField[T]{
		get: func(rec *T) string { return *field(rec) },
		assign: func(_ context.Context, _ storage.RecordStore, _ storage.Kind, rec *T) error {
			*field(rec) = strings.ReplaceAll(uuid.NewString(), "-", "")
			return nil
		},
	}
}

// ResourceHandler serves the base/{list,add,update,delete,<id>} endpoint family for one kind.
type ResourceHandler[T any] struct {
	kind   storage.Kind
	store  storage.RecordStore
	id     IDField[T]
	logger *slog.Logger
}

func NewResourceHandler[T any](kind storage.Kind, store storage.RecordStore, id IDField[T], logger *slog.Logger) *ResourceHandler[T] {
	return &ResourceHandler[T]{kind: kind, store: store, id: id, logger: logger.With("resource", string(kind))}
}

// Routes is meant for chi's Route(base, fn).
func (h *ResourceHandler[T]) Routes(r chi.Router) {
	r.Post("/list", h.handleList)
	r.Post("/add", h.handleAdd)
	r.Post("/update", h.handleUpdate)
	r.Delete("/delete", h.handleDelete)
	r.Post("/{id}", h.handleGet)
}

func (h *ResourceHandler[T]) handleList(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if r.ContentLength != 0 && !decodeJSON(w, r, &body) {
		return
	}
	var page dto.Page
	if raw, ok := body["page"]; ok {
		if err := json.Unmarshal(raw, &page); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid page")
			return
		}
		delete(body, "page")
	}

	rows, total, err := h.store.List(r.Context(), h.kind, storage.Query{Page: page, Filter: filterFields(body)})
	if err != nil {
		storeError(w, h.logger, "list", err)
		return
	}
	out := make([]T, 0, len(rows))
	for _, raw := range rows {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			h.logger.Warn("skipping undecodable record", "error", err)
			continue
		}
		out = append(out, rec)
	}
	respond.List(w, out, total)
}

func (h *ResourceHandler[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	raw, err := h.store.Get(r.Context(), h.kind, chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, h.logger, "get", err)
		return
	}
	respond.OK(w, "success", raw)
}

func (h *ResourceHandler[T]) handleAdd(w http.ResponseWriter, r *http.Request) {
	var rec T
	if !decodeJSON(w, r, &rec) {
		return
	}
	if h.id.get(&rec) == "" {
		if err := h.id.assign(r.Context(), h.store, h.kind, &rec); err != nil {
			storeError(w, h.logger, "assign id", err)
			return
		}
	}
	body, err := json.Marshal(rec)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid record")
		return
	}
	if err := h.store.Create(r.Context(), h.kind, h.id.get(&rec), body); err != nil {
		storeError(w, h.logger, "add", err)
		return
	}
	respond.OK(w, "success", rec)
}

func (h *ResourceHandler[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var rec T
	if !decodeJSON(w, r, &rec) {
		return
	}
	id := h.id.get(&rec)
	if id == "" {
		respond.Error(w, http.StatusBadRequest, "id is required")
		return
	}
	body, err := json.Marshal(rec)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid record")
		return
	}
	if err := h.store.Update(r.Context(), h.kind, id, body); err != nil {
		storeError(w, h.logger, "update", err)
		return
	}
	respond.OK(w, "success", rec)
}

func (h *ResourceHandler[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	var raw []json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := scalarText(v); ok && id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		respond.Error(w, http.StatusBadRequest, "no ids given")
		return
	}
	n, err := h.store.Delete(r.Context(), h.kind, ids)
	if err != nil {
		storeError(w, h.logger, "delete", err)
		return
	}
	h.logger.Info("records deleted", "requested", len(ids), "deleted", n)
	respond.OK(w, "success", map[string]int64{"deleted": n})
}

// filterFields keeps non-empty scalar fields of a list body.
func filterFields(body map[string]json.RawMessage) map[string]string {
	filter := map[string]string{}
	for key, raw := range body {
		if v, ok := scalarText(raw); ok && v != "" {
			filter[key] = v
		}
	}
	return filter
}

// scalarText renders a JSON string, number or bool as text.
func scalarText(raw json.RawMessage) (string, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}
