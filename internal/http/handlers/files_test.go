package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/therapy-console/internal/logging"
	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/models/dto"
	"github.com/hongminglow/therapy-console/internal/storage/blob"
	"github.com/hongminglow/therapy-console/internal/storage/memory"
)

func newFileRouter(t *testing.T) http.Handler {
	t.Helper()
	blobs, err := blob.New(t.TempDir())
	require.NoError(t, err)
	h := NewFileHandler(memory.New(), blobs, logging.Discard())
	r := chi.NewRouter()
	h.Routes(r)
	h.PublicRoutes(r)
	return r
}

func hexSum(b []byte) string {
	s := sha256.Sum256(b)
	return hex.EncodeToString(s[:])
}

func sendMultipart(t *testing.T, h http.Handler, method, path string, fields map[string]string, fileField, fileName string, content []byte) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile(fileField, fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func fileFrom(t *testing.T, env envelope) models.FileEntry {
	t.Helper()
	var f models.FileEntry
	require.NoError(t, json.Unmarshal(env.Data, &f))
	return f
}

func rawGet(h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSingleShotUploadDeduplicatesAndNamesUniquely(t *testing.T) {
	r := newFileRouter(t)

	status, env := sendMultipart(t, r, http.MethodPost, "/upload", map[string]string{"note": "intake form"}, "file", "intake form.pdf", []byte("v1"))
	require.Equal(t, http.StatusOK, status)
	first := fileFrom(t, env)
	assert.Equal(t, "intake_form.pdf", first.PublicName)
	assert.Equal(t, hexSum([]byte("v1")), first.SHA256)
	assert.EqualValues(t, 2, first.Size)
	assert.Equal(t, "intake form", first.Note)
	assert.Contains(t, first.PublicURL, "/p/intake_form.pdf")
	assert.Contains(t, first.DownloadURL, "/download/"+strconv.FormatInt(first.ID, 10))

	status, env = sendMultipart(t, r, http.MethodPost, "/upload", nil, "file", "copy.pdf", []byte("v1"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, first.ID, fileFrom(t, env).ID, "same content is reused")
	assert.Contains(t, env.Msg, "复用")

	status, env = sendMultipart(t, r, http.MethodPost, "/upload", nil, "file", "intake form.pdf", []byte("v2"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "intake_form-1.pdf", fileFrom(t, env).PublicName)

	rec := rawGet(r, "/download/"+strconv.FormatInt(first.ID, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	rec = rawGet(r, "/p/intake_form-1.pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v2", rec.Body.String())

	_, env = call(t, r, http.MethodGet, "/files", "", nil)
	assert.EqualValues(t, 2, env.Total)

	status, _ = call(t, r, http.MethodGet, "/files/999", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestResumableUploadLifecycle(t *testing.T) {
	r := newFileRouter(t)
	part1, part2 := []byte("session "), []byte("recording")
	full := append(append([]byte{}, part1...), part2...)
	size := int64(len(full))

	status, env := call(t, r, http.MethodPost, "/uploads/initiate", "", dto.UploadInitRequest{Filename: "session.wav", ExpectedSize: &size})
	require.Equal(t, http.StatusOK, status)
	var started dto.UploadInitResponse
	require.NoError(t, json.Unmarshal(env.Data, &started))
	base := "/uploads/" + started.UploadID

	status, env = sendMultipart(t, r, http.MethodPut, base+"/chunk", map[string]string{"index": "0", "sha256": hexSum(part1)}, "chunk", "blob", part1)
	require.Equal(t, http.StatusOK, status)
	var up models.Upload
	require.NoError(t, json.Unmarshal(env.Data, &up))
	assert.Equal(t, models.UploadReceiving, up.Status)
	assert.Equal(t, 1, up.NextIndex)
	assert.EqualValues(t, len(part1), up.ReceivedBytes)

	status, _ = sendMultipart(t, r, http.MethodPut, base+"/chunk", map[string]string{"index": "0"}, "chunk", "blob", part1)
	assert.Equal(t, http.StatusConflict, status, "chunks arrive in order")

	status, _ = sendMultipart(t, r, http.MethodPut, base+"/chunk", map[string]string{"index": "1", "sha256": hexSum([]byte("other"))}, "chunk", "blob", part2)
	assert.Equal(t, http.StatusBadRequest, status)
	_, env = call(t, r, http.MethodGet, base, "", nil)
	require.NoError(t, json.Unmarshal(env.Data, &up))
	assert.EqualValues(t, len(part1), up.ReceivedBytes, "a rejected chunk is not kept")

	status, _ = sendMultipart(t, r, http.MethodPut, base+"/chunk", map[string]string{"index": "1"}, "chunk", "blob", part2)
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, r, http.MethodPost, base+"/commit", "", dto.UploadCommitRequest{ExpectedSHA256: hexSum(full), ContentType: "audio/wav"})
	require.Equal(t, http.StatusOK, status)
	file := fileFrom(t, env)
	assert.Equal(t, hexSum(full), file.SHA256)
	assert.Equal(t, size, file.Size)

	rec := rawGet(r, "/p/session.wav", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(full), rec.Body.String())
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))

	status, _ = sendMultipart(t, r, http.MethodPut, base+"/chunk", map[string]string{"index": "2"}, "chunk", "blob", part2)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = call(t, r, http.MethodPost, base+"/commit", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCommitChecksExpectations(t *testing.T) {
	r := newFileRouter(t)
	wrongSize := int64(99)

	_, env := call(t, r, http.MethodPost, "/uploads/initiate", "", dto.UploadInitRequest{Filename: "a.bin", ExpectedSize: &wrongSize})
	var started dto.UploadInitResponse
	require.NoError(t, json.Unmarshal(env.Data, &started))
	base := "/uploads/" + started.UploadID
	status, _ := sendMultipart(t, r, http.MethodPut, base+"/chunk", map[string]string{"index": "0"}, "chunk", "blob", []byte("abc"))
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, r, http.MethodPost, base+"/commit", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Msg, "size mismatch")

	size := int64(3)
	status, env = call(t, r, http.MethodPost, base+"/commit", "", dto.UploadCommitRequest{ExpectedSize: &size, ExpectedSHA256: hexSum([]byte("xyz"))})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Msg, "SHA256")

	status, _ = call(t, r, http.MethodPost, base+"/commit", "", dto.UploadCommitRequest{ExpectedSize: &size})
	assert.Equal(t, http.StatusOK, status)
}

func TestAbortFinalizesUpload(t *testing.T) {
	r := newFileRouter(t)

	_, env := call(t, r, http.MethodPost, "/uploads/initiate", "", dto.UploadInitRequest{Filename: "a.bin"})
	var started dto.UploadInitResponse
	require.NoError(t, json.Unmarshal(env.Data, &started))
	base := "/uploads/" + started.UploadID

	status, _ := call(t, r, http.MethodPost, base+"/abort", "", nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = sendMultipart(t, r, http.MethodPut, base+"/chunk", map[string]string{"index": "0"}, "chunk", "blob", []byte("x"))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, r, http.MethodPost, "/uploads/not-a-uuid/abort", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = call(t, r, http.MethodPost, "/uploads/initiate", "", dto.UploadInitRequest{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestVideoStreamingHonoursRanges(t *testing.T) {
	r := newFileRouter(t)
	clip := make([]byte, 100)
	for i := range clip {
		clip[i] = byte(i)
	}
	status, _ := sendMultipart(t, r, http.MethodPost, "/upload", nil, "file", "clip.mp4", clip)
	require.Equal(t, http.StatusOK, status)

	rec := rawGet(r, "/video/raw/clip.mp4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Len(t, rec.Body.Bytes(), 100)

	rec = rawGet(r, "/video/raw/clip.mp4", http.Header{"Range": {"bytes=10-19"}})
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 10-19/100", rec.Header().Get("Content-Range"))
	assert.Equal(t, clip[10:20], rec.Body.Bytes())

	rec = rawGet(r, "/video/raw/clip.mp4", http.Header{"Range": {"bytes=-5"}})
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, clip[95:], rec.Body.Bytes())

	rec = rawGet(r, "/video/raw/clip.mp4", http.Header{"Range": {"bytes=200-"}})
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
	assert.Equal(t, "bytes */100", rec.Header().Get("Content-Range"))

	rec = rawGet(r, "/video/raw/missing.mp4", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.NotEmpty(t, body)
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"intake form.pdf":  "intake_form.pdf",
		"../../etc/passwd": "passwd",
		`C:\temp\报告·1.pdf`: "报告·1.pdf",
		"a<b>c?.txt":       "abc.txt",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFilename(in), fmt.Sprintf("SanitizeFilename(%q)", in))
	}
	assert.Len(t, SanitizeFilename("???"), 32)
}
