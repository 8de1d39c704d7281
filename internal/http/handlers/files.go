package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hongminglow/therapy-console/internal/http/respond"
	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/models/dto"
	"github.com/hongminglow/therapy-console/internal/storage"
	"github.com/hongminglow/therapy-console/internal/storage/blob"
)

const (
	maxUploadBytes = 512 << 20
	maxChunkBytes  = 64 << 20
	// multipart parts above this size spill to temporary files
	multipartMemory = 8 << 20
)

// FileHandler serves single-shot and resumable uploads plus downloads.
// File and upload metadata live in the record store, contents in the blob store.
type FileHandler struct {
	records storage.RecordStore
	blobs   *blob.Store
	logger  *slog.Logger
	now     func() time.Time

	// mu serialises upload state changes and public name allocation.
	mu sync.Mutex
}

func NewFileHandler(records storage.RecordStore, blobs *blob.Store, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		records: records,
		blobs:   blobs,
		logger:  logger.With("component", "files"),
		now:     time.Now,
	}
}

// Routes registers the endpoints that need a signed-in user.
func (h *FileHandler) Routes(r chi.Router) {
	r.Post("/upload", h.handleUpload)
	r.Route("/uploads", func(r chi.Router) {
		r.Post("/initiate", h.handleInitiate)
		r.Get("/{uploadID}", h.handleStatus)
		r.Put("/{uploadID}/chunk", h.handleChunk)
		r.Post("/{uploadID}/commit", h.handleCommit)
		r.Post("/{uploadID}/abort", h.handleAbort)
	})
	r.Get("/files", h.handleList)
	r.Get("/files/{fileID}", h.handleGet)
}

// PublicRoutes registers the download links, which media elements fetch without credentials.
func (h *FileHandler) PublicRoutes(r chi.Router) {
	r.Get("/download/{fileID}", h.handleDownload)
	r.Get("/p/{publicName}", h.handlePublic)
	r.Get("/video/raw/{publicName}", h.handleVideo)
}

func (h *FileHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respond.Error(w, http.StatusBadRequest, "multipart form with a file field is required")
		return
	}
	defer r.MultipartForm.RemoveAll()
	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "multipart form with a file field is required")
		return
	}
	defer file.Close()

	sum, size, err := h.blobs.Put(file)
	if err != nil {
		h.logger.Error("store upload failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "store upload failed")
		return
	}

	ctype := header.Header.Get("Content-Type")
	if ctype == "application/octet-stream" {
		// multipart writers default to it; the extension says more
		ctype = ""
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	entry, reused, err := h.register(r, header.Filename, ctype, r.FormValue("note"), sum, size)
	if err != nil {
		storeError(w, h.logger, "register file", err)
		return
	}
	msg := "上传成功"
	if reused {
		msg = "上传成功（已存在，直接复用）"
	}
	respond.OK(w, msg, h.withURLs(r, entry))
}

func (h *FileHandler) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req dto.UploadInitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		respond.Error(w, http.StatusBadRequest, "filename is required")
		return
	}
	if req.ExpectedSHA256 != "" && !blob.ValidSum(strings.ToLower(req.ExpectedSHA256)) {
		respond.Error(w, http.StatusBadRequest, "expected_sha256 must be a hex SHA-256")
		return
	}

	now := h.now().UTC()
	up := models.Upload{
		ID:             uuid.NewString(),
		Filename:       req.Filename,
		ExpectedSize:   req.ExpectedSize,
		ExpectedSHA256: strings.ToLower(req.ExpectedSHA256),
		Status:         models.UploadInitiated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.blobs.Begin(up.ID); err != nil {
		h.logger.Error("begin upload failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "begin upload failed")
		return
	}
	if err := h.putUpload(r, up, true); err != nil {
		_ = h.blobs.Discard(up.ID)
		storeError(w, h.logger, "create upload", err)
		return
	}
	h.logger.Info("upload initiated", "upload_id", up.ID, "filename", up.Filename)
	respond.OK(w, "创建分片会话成功", dto.UploadInitResponse{UploadID: up.ID})
}

func (h *FileHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	up, err := h.loadUpload(r)
	if err != nil {
		storeError(w, h.logger, "get upload", err)
		return
	}
	respond.OK(w, "查询成功", up)
}

func (h *FileHandler) handleChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChunkBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respond.Error(w, http.StatusBadRequest, "multipart form with index and chunk fields is required")
		return
	}
	defer r.MultipartForm.RemoveAll()
	index, err := strconv.Atoi(r.FormValue("index"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	chunk, _, err := r.FormFile("chunk")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "multipart form with index and chunk fields is required")
		return
	}
	defer chunk.Close()

	h.mu.Lock()
	defer h.mu.Unlock()
	up, err := h.loadUpload(r)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && up.Status.Finalized()) {
		respond.Error(w, http.StatusNotFound, "upload not found or already finalized")
		return
	}
	if err != nil {
		storeError(w, h.logger, "get upload", err)
		return
	}
	if index != up.NextIndex {
		respond.Error(w, http.StatusConflict, fmt.Sprintf("unexpected chunk index %d, expected %d", index, up.NextIndex))
		return
	}

	before, err := h.blobs.Size(up.ID)
	if err != nil {
		h.blobError(w, "read upload", err)
		return
	}
	n, sum, err := h.blobs.Append(up.ID, chunk)
	if err != nil {
		h.blobError(w, "append chunk", err)
		return
	}
	if want := strings.ToLower(r.FormValue("sha256")); want != "" && want != sum {
		if err := h.blobs.Truncate(up.ID, before); err != nil {
			h.logger.Error("drop rejected chunk failed", "upload_id", up.ID, "error", err)
		}
		respond.Error(w, http.StatusBadRequest, "chunk checksum mismatch")
		return
	}

	up.Status = models.UploadReceiving
	up.ReceivedBytes = before + n
	up.NextIndex++
	up.UpdatedAt = h.now().UTC()
	if err := h.putUpload(r, up, false); err != nil {
		_ = h.blobs.Truncate(up.ID, before)
		storeError(w, h.logger, "update upload", err)
		return
	}
	respond.OK(w, "分片上传成功", up)
}

func (h *FileHandler) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req dto.UploadCommitRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	up, err := h.loadUpload(r)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && up.Status.Finalized()) {
		respond.Error(w, http.StatusNotFound, "upload not found or already finalized")
		return
	}
	if err != nil {
		storeError(w, h.logger, "get upload", err)
		return
	}

	sum, size, err := h.blobs.Sum(up.ID)
	if errors.Is(err, blob.ErrNotFound) {
		respond.Error(w, http.StatusGone, "temporary file missing")
		return
	}
	if err != nil {
		h.blobError(w, "hash upload", err)
		return
	}
	expSize := req.ExpectedSize
	if expSize == nil {
		expSize = up.ExpectedSize
	}
	if expSize != nil && *expSize != size {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("size mismatch: got %d, expected %d", size, *expSize))
		return
	}
	expSum := strings.ToLower(req.ExpectedSHA256)
	if expSum == "" {
		expSum = up.ExpectedSHA256
	}
	if expSum != "" && expSum != sum {
		respond.Error(w, http.StatusBadRequest, "SHA256 mismatch")
		return
	}

	if err := h.blobs.Promote(up.ID, sum); err != nil {
		h.blobError(w, "promote upload", err)
		return
	}
	entry, reused, err := h.register(r, up.Filename, req.ContentType, req.Note, sum, size)
	if err != nil {
		storeError(w, h.logger, "register file", err)
		return
	}
	up.Status = models.UploadCommitted
	up.UpdatedAt = h.now().UTC()
	if err := h.putUpload(r, up, false); err != nil {
		storeError(w, h.logger, "update upload", err)
		return
	}
	h.logger.Info("upload committed", "upload_id", up.ID, "file_id", entry.ID, "reused", reused)

	msg := "提交成功"
	if reused {
		msg = "提交成功（已存在，直接复用）"
	}
	respond.OK(w, msg, h.withURLs(r, entry))
}

func (h *FileHandler) handleAbort(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	up, err := h.loadUpload(r)
	if err != nil {
		storeError(w, h.logger, "get upload", err)
		return
	}
	if err := h.blobs.Discard(up.ID); err != nil {
		h.logger.Warn("discard upload", "upload_id", up.ID, "error", err)
	}
	if up.Status != models.UploadCommitted {
		up.Status = models.UploadAborted
		up.UpdatedAt = h.now().UTC()
		if err := h.putUpload(r, up, false); err != nil {
			storeError(w, h.logger, "update upload", err)
			return
		}
	}
	respond.OK(w, "已取消上传", dto.UploadInitResponse{UploadID: up.ID})
}

func (h *FileHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageNum, _ := strconv.Atoi(q.Get("pageNum"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	page := dto.ListParams{PageNum: pageNum, PageSize: pageSize}.Page()

	rows, total, err := h.records.List(r.Context(), storage.KindFile, storage.Query{
		Page:   page,
		Filter: map[string]string{"status": models.FileActive},
	})
	if err != nil {
		storeError(w, h.logger, "list files", err)
		return
	}
	files := make([]models.FileEntry, 0, len(rows))
	for _, raw := range rows {
		var f models.FileEntry
		if err := json.Unmarshal(raw, &f); err != nil {
			storeError(w, h.logger, "decode file", err)
			return
		}
		files = append(files, h.withURLs(r, f))
	}
	respond.List(w, files, total)
}

func (h *FileHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.activeFile(r, chi.URLParam(r, "fileID"))
	if err != nil {
		storeError(w, h.logger, "get file", err)
		return
	}
	respond.OK(w, "查询成功", h.withURLs(r, entry))
}

func (h *FileHandler) handleDownload(w http.ResponseWriter, r *http.Request) {
	entry, err := h.activeFile(r, chi.URLParam(r, "fileID"))
	if err != nil {
		storeError(w, h.logger, "get file", err)
		return
	}
	h.serve(w, r, entry, "attachment", "application/octet-stream")
}

func (h *FileHandler) handlePublic(w http.ResponseWriter, r *http.Request) {
	entry, err := h.byPublicName(r, chi.URLParam(r, "publicName"))
	if err != nil {
		storeError(w, h.logger, "get file", err)
		return
	}
	h.serve(w, r, entry, "inline", "application/octet-stream")
}

// handleVideo streams a stored video for players that seek with Range requests.
func (h *FileHandler) handleVideo(w http.ResponseWriter, r *http.Request) {
	entry, err := h.byPublicName(r, chi.URLParam(r, "publicName"))
	if err != nil {
		storeError(w, h.logger, "get file", err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	h.serve(w, r, entry, "inline", "video/mp4")
}

// serve writes the blob with Range, If-Range and HEAD support.
func (h *FileHandler) serve(w http.ResponseWriter, r *http.Request, entry models.FileEntry, disposition, fallbackType string) {
	f, err := h.blobs.Open(entry.SHA256)
	if errors.Is(err, blob.ErrNotFound) {
		respond.Error(w, http.StatusGone, "file missing on disk")
		return
	}
	if err != nil {
		h.blobError(w, "open file", err)
		return
	}
	defer f.Close()

	ctype := entry.ContentType
	if ctype == "" {
		ctype = mime.TypeByExtension(path.Ext(entry.OriginalName))
	}
	if ctype == "" {
		ctype = fallbackType
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": entry.OriginalName}))
	http.ServeContent(w, r, entry.OriginalName, entry.CreatedAt, f)
}

// register records a stored blob as a file, reusing an active entry with the same content.
// Callers hold h.mu.
func (h *FileHandler) register(r *http.Request, name, contentType, note, sum string, size int64) (models.FileEntry, bool, error) {
	ctx := r.Context()
	if existing, err := h.findOne(r, map[string]string{"sha256": sum, "status": models.FileActive}); err == nil {
		return existing, true, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return models.FileEntry{}, false, err
	}

	publicName, err := h.uniquePublicName(r, SanitizeFilename(name))
	if err != nil {
		return models.FileEntry{}, false, err
	}
	id, err := h.records.NextID(ctx, storage.KindFile)
	if err != nil {
		return models.FileEntry{}, false, err
	}
	entry := models.FileEntry{
		ID:           id,
		OriginalName: name,
		PublicName:   publicName,
		ContentType:  contentType,
		Size:         size,
		SHA256:       sum,
		Status:       models.FileActive,
		Note:         note,
		CreatedAt:    h.now().UTC(),
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return models.FileEntry{}, false, err
	}
	if err := h.records.Create(ctx, storage.KindFile, strconv.FormatInt(id, 10), body); err != nil {
		return models.FileEntry{}, false, err
	}
	return entry, false, nil
}

// uniquePublicName appends -1, -2, ... before the extension until the name is free.
func (h *FileHandler) uniquePublicName(r *http.Request, base string) (string, error) {
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	candidate := base
	for i := 1; ; i++ {
		_, err := h.findOne(r, map[string]string{"public_name": candidate})
		if errors.Is(err, storage.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
}

func (h *FileHandler) findOne(r *http.Request, filter map[string]string) (models.FileEntry, error) {
	rows, _, err := h.records.List(r.Context(), storage.KindFile, storage.Query{Page: dto.Page{Current: 1, Size: 1}, Filter: filter})
	if err != nil {
		return models.FileEntry{}, err
	}
	if len(rows) == 0 {
		return models.FileEntry{}, storage.ErrNotFound
	}
	var entry models.FileEntry
	err = json.Unmarshal(rows[0], &entry)
	return entry, err
}

func (h *FileHandler) byPublicName(r *http.Request, name string) (models.FileEntry, error) {
	return h.findOne(r, map[string]string{"public_name": name, "status": models.FileActive})
}

func (h *FileHandler) activeFile(r *http.Request, id string) (models.FileEntry, error) {
	raw, err := h.records.Get(r.Context(), storage.KindFile, id)
	if err != nil {
		return models.FileEntry{}, err
	}
	var entry models.FileEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return models.FileEntry{}, err
	}
	if entry.Status != models.FileActive {
		return models.FileEntry{}, storage.ErrNotFound
	}
	return entry, nil
}

func (h *FileHandler) loadUpload(r *http.Request) (models.Upload, error) {
	id := chi.URLParam(r, "uploadID")
	if _, err := uuid.Parse(id); err != nil {
		return models.Upload{}, storage.ErrNotFound
	}
	raw, err := h.records.Get(r.Context(), storage.KindUpload, id)
	if err != nil {
		return models.Upload{}, err
	}
	var up models.Upload
	err = json.Unmarshal(raw, &up)
	return up, err
}

func (h *FileHandler) putUpload(r *http.Request, up models.Upload, create bool) error {
	body, err := json.Marshal(up)
	if err != nil {
		return err
	}
	if create {
		return h.records.Create(r.Context(), storage.KindUpload, up.ID, body)
	}
	return h.records.Update(r.Context(), storage.KindUpload, up.ID, body)
}

func (h *FileHandler) blobError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, blob.ErrNotFound) {
		respond.Error(w, http.StatusGone, "temporary file missing")
		return
	}
	h.logger.Error(op+" failed", "error", err)
	respond.Error(w, http.StatusInternalServerError, op+" failed")
}

// withURLs fills the download and public links relative to the request host.
func (h *FileHandler) withURLs(r *http.Request, f models.FileEntry) models.FileEntry {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	base := scheme + "://" + r.Host
	f.DownloadURL = base + "/download/" + strconv.FormatInt(f.ID, 10)
	f.PublicURL = base + "/p/" + url.PathEscape(f.PublicName)
	return f
}

// SanitizeFilename turns an uploaded name into a link-safe public name. Letters
// of any script, digits, '_', '-', '.' and '·' survive; spaces become '_'.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == ' ':
			b.WriteRune('_')
		case unicode.IsLetter(r), unicode.IsDigit(r), strings.ContainsRune("_-.·", r):
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return out
}
