package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/models/dto"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures persistence operations needed by the auth handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindRole(ctx context.Context, name string) (models.Role, error)
}

// Kind names a record collection.
type Kind string

const (
	KindDevice      Kind = "device"
	KindDictType    Kind = "dict_type"
	KindDictData    Kind = "dict_data"
	KindReport      Kind = "report"
	KindVisitRecord Kind = "visit_record"
	KindPatient     Kind = "patient"
	KindVideo       Kind = "video"
	KindFile        Kind = "file"
	KindUpload      Kind = "upload"
)

// Query selects one page of a collection.
// Filter holds exact matches on top-level JSON fields, compared as text.
type Query struct {
	Page   dto.Page
	Filter map[string]string
}

// RecordStore keeps JSON documents per kind, in insertion order.
type RecordStore interface {
	List(ctx context.Context, kind Kind, q Query) ([]json.RawMessage, int64, error)
	Get(ctx context.Context, kind Kind, id string) (json.RawMessage, error)
	Create(ctx context.Context, kind Kind, id string, body json.RawMessage) error
	Update(ctx context.Context, kind Kind, id string, body json.RawMessage) error
	// Delete removes the given ids and reports how many existed.
	Delete(ctx context.Context, kind Kind, ids []string) (int64, error)
	// NextID returns an unused numeric id for kinds keyed by integers.
	NextID(ctx context.Context, kind Kind) (int64, error)
}

// Seed inserts records of one kind, using id to derive each key.
func Seed[T any](ctx context.Context, s RecordStore, kind Kind, records []T, id func(T) string) error {
	for _, rec := range records {
		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", kind, err)
		}
		if err := s.Create(ctx, kind, id(rec), body); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return fmt.Errorf("seed %s %s: %w", kind, id(rec), err)
		}
	}
	return nil
}

// Matches reports whether the document satisfies every filter entry.
func Matches(body json.RawMessage, filter map[string]string) bool {
	if len(filter) == 0 {
		return true
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return false
	}
	for key, want := range filter {
		v, ok := fields[key]
		if !ok || fieldText(v) != want {
			return false
		}
	}
	return true
}

func fieldText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		raw, _ := json.Marshal(x)
		return string(raw)
	}
}
