// Package blob keeps uploaded file contents on local disk.
//
// Committed contents live under blobs/ named by their SHA-256, so identical
// uploads share one file. Resumable uploads grow under tmp/ until committed.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a blob or temporary upload file is missing.
var ErrNotFound = errors.New("blob not found")

// Store is a directory of content-addressed blobs plus in-progress uploads.
type Store struct {
	blobs string
	tmp   string
}

// New prepares dir for use.
func New(dir string) (*Store, error) {
	s := &Store{blobs: filepath.Join(dir, "blobs"), tmp: filepath.Join(dir, "tmp")}
	for _, d := range []string{s.blobs, s.tmp} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	return s, nil
}

// ValidSum reports whether sum is a lowercase hex SHA-256.
func ValidSum(sum string) bool {
	if len(sum) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(sum)
	return err == nil
}

func (s *Store) tmpPath(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid upload id %q", id)
	}
	return filepath.Join(s.tmp, id+".part"), nil
}

func (s *Store) blobPath(sum string) (string, error) {
	if !ValidSum(sum) {
		return "", fmt.Errorf("invalid checksum %q", sum)
	}
	return filepath.Join(s.blobs, sum), nil
}

// Begin creates the empty temporary file of upload id.
func (s *Store) Begin(id string) error {
	p, err := s.tmpPath(id)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("begin upload: %w", err)
	}
	return f.Close()
}

// Size returns the number of bytes received so far for upload id.
func (s *Store) Size(id string) (int64, error) {
	p, err := s.tmpPath(id)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Append adds r to upload id and returns the bytes written and their SHA-256.
// On a write error the file is cut back to its previous length.
func (s *Store) Append(id string, r io.Reader) (int64, string, error) {
	p, err := s.tmpPath(id)
	if err != nil {
		return 0, "", err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_APPEND, 0)
	if errors.Is(err, os.ErrNotExist) {
		return 0, "", ErrNotFound
	}
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, "", err
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), r)
	if err != nil {
		if terr := f.Truncate(info.Size()); terr != nil {
			return 0, "", errors.Join(err, terr)
		}
		return 0, "", fmt.Errorf("append chunk: %w", err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

// Truncate cuts upload id back to size bytes.
func (s *Store) Truncate(id string, size int64) error {
	p, err := s.tmpPath(id)
	if err != nil {
		return err
	}
	return os.Truncate(p, size)
}

// Sum hashes the temporary file of upload id.
func (s *Store) Sum(id string) (string, int64, error) {
	p, err := s.tmpPath(id)
	if err != nil {
		return "", 0, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash upload: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Promote moves upload id to the blob named sum. When that blob already
// exists the temporary file is dropped instead.
func (s *Store) Promote(id, sum string) error {
	src, err := s.tmpPath(id)
	if err != nil {
		return err
	}
	dst, err := s.blobPath(sum)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dst); err == nil {
		return s.Discard(id)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("promote upload: %w", err)
	}
	return nil
}

// Discard removes the temporary file of upload id, if any.
func (s *Store) Discard(id string) error {
	p, err := s.tmpPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Put stores r in one go and returns its checksum and size.
func (s *Store) Put(r io.Reader) (string, int64, error) {
	id := uuid.NewString()
	if err := s.Begin(id); err != nil {
		return "", 0, err
	}
	n, sum, err := s.Append(id, r)
	if err != nil {
		_ = s.Discard(id)
		return "", 0, err
	}
	if err := s.Promote(id, sum); err != nil {
		_ = s.Discard(id)
		return "", 0, err
	}
	return sum, n, nil
}

// Open returns the blob named sum for reading.
func (s *Store) Open(sum string) (*os.File, error) {
	p, err := s.blobPath(sum)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}
