package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/storage"
)

// Ensure Store satisfies the storage interfaces at compile time.
var (
	_ storage.UserStore   = (*Store)(nil)
	_ storage.RecordStore = (*Store)(nil)
)

// Store provides Postgres-backed persistence for users and console records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS role (id BIGINT PRIMARY KEY, role_name TEXT UNIQUE NOT NULL, role_description TEXT);`,
		`INSERT INTO role (id, role_name, role_description) VALUES (1, 'admin', '超级管理员'), (2, 'doctor', '医生'), (3, 'viewer', '访客') ON CONFLICT (id) DO UPDATE SET role_name = EXCLUDED.role_name;`,
		`CREATE TABLE IF NOT EXISTS permission (id BIGINT PRIMARY KEY, permission_name TEXT UNIQUE NOT NULL, permission_description TEXT);`,
		`INSERT INTO permission (id, permission_name, permission_description) VALUES
			(1, '*:*:*', 'All permissions'),
			(2, 'device:list', 'List devices'),
			(3, 'patient:list', 'List patients'),
			(4, 'patient:edit', 'Edit patients'),
			(5, 'visit:list', 'List visit records'),
			(6, 'visit:edit', 'Edit visit records'),
			(7, 'report:view', 'View reports'),
			(8, 'video:list', 'List videos')
			ON CONFLICT (id) DO NOTHING;`,
		`CREATE TABLE IF NOT EXISTS role_permissions (role_id BIGINT NOT NULL, permission_id BIGINT NOT NULL, PRIMARY KEY (role_id, permission_id), FOREIGN KEY (role_id) REFERENCES role(id), FOREIGN KEY (permission_id) REFERENCES permission(id));`,
		`INSERT INTO role_permissions (role_id, permission_id) VALUES (1, 1), (2, 2), (2, 3), (2, 4), (2, 5), (2, 6), (2, 7), (2, 8), (3, 2), (3, 7) ON CONFLICT DO NOTHING;`,
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			nick_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'viewer' REFERENCES role(role_name),
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS records (
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			seq BIGSERIAL,
			body JSONB NOT NULL,
			PRIMARY KEY (kind, id)
		);`,
		`CREATE INDEX IF NOT EXISTS records_kind_seq_idx ON records (kind, seq);`,
		`CREATE TABLE IF NOT EXISTS record_ids (kind TEXT PRIMARY KEY, last_id BIGINT NOT NULL DEFAULT 0);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

const userColumns = `id, username, nick_name, email, phone, role, password_hash, created_at`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if user.Role == "" {
		user.Role = models.Viewer
	}
	query := `
		INSERT INTO users (username, nick_name, email, phone, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, user.UserName, user.NickName, user.Email, user.Phone, user.Role, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// FindByUsername fetches a user by username, ignoring case.
func (s *Store) FindByUsername(ctx context.Context, username string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1);`, username)
	return scanUser(row)
}

// FindByID fetches a user by primary key.
func (s *Store) FindByID(ctx context.Context, id int64) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1;`, id)
	return scanUser(row)
}

// FindRole loads a role together with its permission names.
func (s *Store) FindRole(ctx context.Context, name string) (models.Role, error) {
	const query = `
	SELECT r.id, r.role_name, COALESCE(r.role_description, ''),
	(
		SELECT COALESCE(array_agg(p.permission_name ORDER BY p.id), '{}')
		FROM role_permissions rp
		JOIN permission p ON rp.permission_id = p.id
		WHERE rp.role_id = r.id
	)
	FROM role r
	WHERE r.role_name = $1;
	`
	var role models.Role
	err := s.pool.QueryRow(ctx, query, name).Scan(&role.ID, &role.RoleName, &role.RoleDescription, &role.Permissions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Role{}, storage.ErrNotFound
		}
		return models.Role{}, err
	}
	return role, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.UserName, &user.NickName, &user.Email, &user.Phone, &user.Role, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func whereClause(kind storage.Kind, filter map[string]string) (string, []any) {
	where := "kind = $1"
	args := []any{string(kind)}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, k, filter[k])
		where += fmt.Sprintf(" AND body->>$%d = $%d", len(args)-1, len(args))
	}
	return where, args
}

// List returns one page of documents in insertion order plus the filtered total.
func (s *Store) List(ctx context.Context, kind storage.Kind, q storage.Query) ([]json.RawMessage, int64, error) {
	where, args := whereClause(kind, q.Filter)

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM records WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", kind, err)
	}

	page := q.Page.Normalize()
	args = append(args, page.Size, page.Offset())
	query := fmt.Sprintf(`SELECT body FROM records WHERE %s ORDER BY seq LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", kind, err)
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (json.RawMessage, error) {
		var body []byte
		err := row.Scan(&body)
		return json.RawMessage(body), err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan %s: %w", kind, err)
	}
	return docs, total, nil
}

func (s *Store) Get(ctx context.Context, kind storage.Kind, id string) (json.RawMessage, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM records WHERE kind = $1 AND id = $2`, string(kind), id).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return body, nil
}

// Create inserts a document. Numeric ids also advance the kind's id counter.
func (s *Store) Create(ctx context.Context, kind storage.Kind, id string, body json.RawMessage) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO records (kind, id, body) VALUES ($1, $2, $3)`, string(kind), id, []byte(body))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return storage.ErrAlreadyExists
			}
			return err
		}
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO record_ids (kind, last_id) VALUES ($1, $2)
			ON CONFLICT (kind) DO UPDATE SET last_id = GREATEST(record_ids.last_id, EXCLUDED.last_id)`,
			string(kind), n)
		return err
	})
}

func (s *Store) Update(ctx context.Context, kind storage.Kind, id string, body json.RawMessage) error {
	tag, err := s.pool.Exec(ctx, `UPDATE records SET body = $3 WHERE kind = $1 AND id = $2`, string(kind), id, []byte(body))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, kind storage.Kind, ids []string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM records WHERE kind = $1 AND id = ANY($2)`, string(kind), ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) NextID(ctx context.Context, kind storage.Kind) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO record_ids (kind, last_id) VALUES ($1, 1)
		ON CONFLICT (kind) DO UPDATE SET last_id = record_ids.last_id + 1
		RETURNING last_id`, string(kind)).Scan(&id)
	return id, err
}
