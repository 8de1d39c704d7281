package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/models/dto"
	"github.com/hongminglow/therapy-console/internal/request"
)

// File service paths.
const (
	PathUpload  = "/upload"
	PathUploads = "/uploads"
	PathFiles   = "/files"
)

// DefaultChunkSize is used by UploadResumable when no size is given.
const DefaultChunkSize = 8 << 20

// FileAPI talks to the upload service.
type FileAPI struct {
	r *request.Client
}

// Upload stores content in a single multipart request.
func (f *FileAPI) Upload(ctx context.Context, name string, content io.Reader, note string) (models.FileEntry, error) {
	var out request.DataResult[models.FileEntry]
	fields := map[string]string{}
	if note != "" {
		fields["note"] = note
	}
	err := f.r.Multipart(ctx, http.MethodPost, PathUpload, fields, "file", name, content, &out)
	return out.Data, err
}

func (f *FileAPI) Initiate(ctx context.Context, req dto.UploadInitRequest) (string, error) {
	var out request.DataResult[dto.UploadInitResponse]
	err := f.r.Post(ctx, PathUploads+"/initiate", req, &out)
	return out.Data.UploadID, err
}

func (f *FileAPI) Status(ctx context.Context, uploadID string) (models.Upload, error) {
	var out request.DataResult[models.Upload]
	err := f.r.Get(ctx, PathUploads+"/"+url.PathEscape(uploadID), nil, &out)
	return out.Data, err
}

// PutChunk sends chunk number index together with its SHA-256.
func (f *FileAPI) PutChunk(ctx context.Context, uploadID string, index int, chunk []byte) (models.Upload, error) {
	sum := sha256.Sum256(chunk)
	fields := map[string]string{
		"index":  strconv.Itoa(index),
		"sha256": hex.EncodeToString(sum[:]),
	}
	var out request.DataResult[models.Upload]
	path := PathUploads + "/" + url.PathEscape(uploadID) + "/chunk"
	err := f.r.Multipart(ctx, http.MethodPut, path, fields, "chunk", "chunk", bytes.NewReader(chunk), &out)
	return out.Data, err
}

func (f *FileAPI) Commit(ctx context.Context, uploadID string, req dto.UploadCommitRequest) (models.FileEntry, error) {
	var out request.DataResult[models.FileEntry]
	err := f.r.Post(ctx, PathUploads+"/"+url.PathEscape(uploadID)+"/commit", req, &out)
	return out.Data, err
}

func (f *FileAPI) Abort(ctx context.Context, uploadID string) error {
	return f.r.Post(ctx, PathUploads+"/"+url.PathEscape(uploadID)+"/abort", nil, nil)
}

func (f *FileAPI) List(ctx context.Context, params dto.ListParams) (request.ListResult[models.FileEntry], error) {
	page := params.Page()
	q := url.Values{}
	q.Set("pageNum", strconv.Itoa(page.Current))
	q.Set("pageSize", strconv.Itoa(page.Size))
	var out request.ListResult[models.FileEntry]
	err := f.r.Get(ctx, PathFiles, q, &out)
	return out, err
}

func (f *FileAPI) Get(ctx context.Context, id int64) (models.FileEntry, error) {
	var out request.DataResult[models.FileEntry]
	err := f.r.Get(ctx, PathFiles+"/"+strconv.FormatInt(id, 10), nil, &out)
	return out.Data, err
}

// ResumableOptions tunes UploadResumable.
type ResumableOptions struct {
	// UploadID continues an earlier session instead of starting a new one.
	UploadID  string
	ChunkSize int
	Note      string
	// Progress, when set, is called with the upload id and bytes acknowledged so far.
	Progress func(uploadID string, sent int64)
}

// UploadResumable sends src in chunks and commits it with its size and
// checksum. When opts.UploadID is set the transfer resumes at the offset the
// server reports. A failed transfer leaves the session open so it can be
// resumed; the returned error then carries the upload id.
func (f *FileAPI) UploadResumable(ctx context.Context, name string, src io.ReadSeeker, opts ResumableOptions) (models.FileEntry, error) {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	h := sha256.New()
	size, err := io.Copy(h, src)
	if err != nil {
		return models.FileEntry{}, fmt.Errorf("hash %s: %w", name, err)
	}
	sum := hex.EncodeToString(h.Sum(nil))

	id := opts.UploadID
	var offset int64
	index := 0
	if id == "" {
		id, err = f.Initiate(ctx, dto.UploadInitRequest{Filename: name, ExpectedSize: &size, ExpectedSHA256: sum})
		if err != nil {
			return models.FileEntry{}, fmt.Errorf("initiate upload: %w", err)
		}
	} else {
		up, err := f.Status(ctx, id)
		if err != nil {
			return models.FileEntry{}, fmt.Errorf("resume upload %s: %w", id, err)
		}
		if up.Status.Finalized() {
			return models.FileEntry{}, fmt.Errorf("resume upload %s: already %s", id, up.Status)
		}
		offset, index = up.ReceivedBytes, up.NextIndex
	}
	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return models.FileEntry{}, fmt.Errorf("seek %s: %w", name, err)
	}

	buf := make([]byte, chunkSize)
	for {
		n, rerr := io.ReadFull(src, buf)
		if n > 0 {
			up, err := f.PutChunk(ctx, id, index, buf[:n])
			if err != nil {
				return models.FileEntry{}, &ResumeError{UploadID: id, Err: err}
			}
			index = up.NextIndex
			if opts.Progress != nil {
				opts.Progress(id, up.ReceivedBytes)
			}
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			return models.FileEntry{}, &ResumeError{UploadID: id, Err: rerr}
		}
	}

	entry, err := f.Commit(ctx, id, dto.UploadCommitRequest{ExpectedSize: &size, ExpectedSHA256: sum, Note: opts.Note})
	if err != nil {
		return models.FileEntry{}, fmt.Errorf("commit upload %s: %w", id, err)
	}
	return entry, nil
}

// ResumeError reports an interrupted transfer that can be continued with UploadID.
type ResumeError struct {
	UploadID string
	Err      error
}

func (e *ResumeError) Error() string {
	return fmt.Sprintf("upload %s interrupted: %v", e.UploadID, e.Err)
}

func (e *ResumeError) Unwrap() error { return e.Err }
