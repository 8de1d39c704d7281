// Package memory keeps dev server state in process memory.
package memory

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/storage"
)

var (
	_ storage.UserStore   = (*Store)(nil)
	_ storage.RecordStore = (*Store)(nil)
)

type collection struct {
	order  []string
	docs   map[string]json.RawMessage
	lastID int64
}

// Store implements both storage interfaces behind one mutex.
type Store struct {
	mu          sync.RWMutex
	users       map[int64]models.User
	nextUserID  int64
	roles       map[string]models.Role
	collections map[storage.Kind]*collection
}

// New returns an empty store with the default roles.
func New() *Store {
	return &Store{
		users:       map[int64]models.User{},
		roles:       DefaultRoles(),
		collections: map[storage.Kind]*collection{},
	}
}

// DefaultRoles mirrors the roles the Postgres migrations insert.
func DefaultRoles() map[string]models.Role {
	return map[string]models.Role{
		models.SuperAdmin: {ID: 1, RoleName: models.SuperAdmin, RoleDescription: "超级管理员", Permissions: []string{models.AllPermissions}},
		models.Doctor: {ID: 2, RoleName: models.Doctor, RoleDescription: "医生", Permissions: []string{
			"device:list", "patient:list", "patient:edit", "visit:list", "visit:edit", "report:view", "video:list",
		}},
		models.Viewer: {ID: 3, RoleName: models.Viewer, RoleDescription: "访客", Permissions: []string{
			"device:list", "report:view",
		}},
	}
}

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.UserName, user.UserName) || (user.Email != "" && strings.EqualFold(u.Email, user.Email)) {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	if _, ok := s.roles[user.Role]; !ok {
		user.Role = models.Viewer
	}
	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = time.Now().UTC()
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.UserName, username) {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *Store) FindByID(_ context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) FindRole(_ context.Context, name string) (models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[name]
	if !ok {
		return models.Role{}, storage.ErrNotFound
	}
	return r, nil
}

func (s *Store) coll(kind storage.Kind) *collection {
	c, ok := s.collections[kind]
	if !ok {
		c = &collection{docs: map[string]json.RawMessage{}}
		s.collections[kind] = c
	}
	return c
}

func (s *Store) List(_ context.Context, kind storage.Kind, q storage.Query) ([]json.RawMessage, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[kind]
	if !ok {
		return nil, 0, nil
	}

	var matched []json.RawMessage
	for _, id := range c.order {
		if doc := c.docs[id]; storage.Matches(doc, q.Filter) {
			matched = append(matched, doc)
		}
	}
	total := int64(len(matched))
	page := q.Page.Normalize()
	start := min(page.Offset(), len(matched))
	end := min(start+page.Size, len(matched))
	return matched[start:end], total, nil
}

func (s *Store) Get(_ context.Context, kind storage.Kind, id string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[kind]
	if !ok {
		return nil, storage.ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

func (s *Store) Create(_ context.Context, kind storage.Kind, id string, body json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(kind)
	if _, exists := c.docs[id]; exists {
		return storage.ErrAlreadyExists
	}
	c.docs[id] = append(json.RawMessage(nil), body...)
	c.order = append(c.order, id)
	if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > c.lastID {
		c.lastID = n
	}
	return nil
}

func (s *Store) Update(_ context.Context, kind storage.Kind, id string, body json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[kind]
	if !ok {
		return storage.ErrNotFound
	}
	if _, exists := c.docs[id]; !exists {
		return storage.ErrNotFound
	}
	c.docs[id] = append(json.RawMessage(nil), body...)
	return nil
}

func (s *Store) Delete(_ context.Context, kind storage.Kind, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[kind]
	if !ok {
		return 0, nil
	}
	drop := map[string]bool{}
	for _, id := range ids {
		if _, exists := c.docs[id]; exists {
			drop[id] = true
			delete(c.docs, id)
		}
	}
	if len(drop) == 0 {
		return 0, nil
	}
	kept := c.order[:0]
	for _, id := range c.order {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	c.order = kept
	return int64(len(drop)), nil
}

func (s *Store) NextID(_ context.Context, kind storage.Kind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(kind)
	c.lastID++
	return c.lastID, nil
}
