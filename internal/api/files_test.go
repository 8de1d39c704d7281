package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/therapy-console/internal/models/dto"
)

// chunkServer accepts chunks for a single upload and can refuse one index.
type chunkServer struct {
	mu        sync.Mutex
	received  bytes.Buffer
	next      int
	failIndex int
	commit    dto.UploadCommitRequest
	initiated dto.UploadInitRequest
}

func (s *chunkServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case r.URL.Path == "/uploads/initiate":
		json.NewDecoder(r.Body).Decode(&s.initiated)
		w.Write([]byte(`{"code":200,"data":{"upload_id":"u-1"}}`))
	case r.URL.Path == "/uploads/u-1" && r.Method == http.MethodGet:
		fmt.Fprintf(w, `{"code":200,"data":{"upload_id":"u-1","status":"receiving","received_bytes":%d,"next_index":%d}}`, s.received.Len(), s.next)
	case r.URL.Path == "/uploads/u-1/chunk":
		index, _ := strconv.Atoi(r.FormValue("index"))
		if index == s.failIndex {
			s.failIndex = -1
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"code":500,"msg":"disk full"}`))
			return
		}
		if index != s.next {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"code":409,"msg":"unexpected chunk index"}`))
			return
		}
		f, _, err := r.FormFile("chunk")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		sum := sha256.Sum256(data)
		if r.FormValue("sha256") != hex.EncodeToString(sum[:]) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":400,"msg":"chunk checksum mismatch"}`))
			return
		}
		s.received.Write(data)
		s.next++
		fmt.Fprintf(w, `{"code":200,"data":{"upload_id":"u-1","received_bytes":%d,"next_index":%d}}`, s.received.Len(), s.next)
	case r.URL.Path == "/uploads/u-1/commit":
		json.NewDecoder(r.Body).Decode(&s.commit)
		fmt.Fprintf(w, `{"code":200,"data":{"id":1,"original_name":"clip.mp4","size":%d}}`, s.received.Len())
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func sha(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func TestUploadResumableSendsChunksAndCommits(t *testing.T) {
	srv := &chunkServer{failIndex: -1}
	c := newTestAPI(t, srv.ServeHTTP)
	content := strings.Repeat("0123456789", 5)

	var progress []int64
	entry, err := c.Files.UploadResumable(context.Background(), "clip.mp4", strings.NewReader(content), ResumableOptions{
		ChunkSize: 16,
		Note:      "session 3",
		Progress:  func(_ string, sent int64) { progress = append(progress, sent) },
	})
	require.NoError(t, err)

	assert.EqualValues(t, 1, entry.ID)
	assert.Equal(t, content, srv.received.String())
	assert.Equal(t, []int64{16, 32, 48, 50}, progress)
	assert.Equal(t, "clip.mp4", srv.initiated.Filename)
	require.NotNil(t, srv.initiated.ExpectedSize)
	assert.EqualValues(t, 50, *srv.initiated.ExpectedSize)
	assert.Equal(t, sha(content), srv.commit.ExpectedSHA256)
	assert.Equal(t, "session 3", srv.commit.Note)
}

func TestUploadResumableContinuesAfterFailure(t *testing.T) {
	srv := &chunkServer{failIndex: 2}
	c := newTestAPI(t, srv.ServeHTTP)
	content := strings.Repeat("abcdefgh", 6)
	src := strings.NewReader(content)

	_, err := c.Files.UploadResumable(context.Background(), "clip.mp4", src, ResumableOptions{ChunkSize: 8})
	var resume *ResumeError
	require.ErrorAs(t, err, &resume)
	assert.Equal(t, "u-1", resume.UploadID)
	assert.Equal(t, 16, srv.received.Len())

	entry, err := c.Files.UploadResumable(context.Background(), "clip.mp4", src, ResumableOptions{ChunkSize: 8, UploadID: resume.UploadID})
	require.NoError(t, err)
	assert.EqualValues(t, 48, entry.Size)
	assert.Equal(t, content, srv.received.String())
	assert.Equal(t, sha(content), srv.commit.ExpectedSHA256)
}

func TestSingleShotUploadAndListing(t *testing.T) {
	c := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/upload":
			f, header, err := r.FormFile("file")
			require.NoError(t, err)
			data, _ := io.ReadAll(f)
			assert.Equal(t, "notes.txt", header.Filename)
			assert.Equal(t, "hello", string(data))
			assert.Equal(t, "first", r.FormValue("note"))
			w.Write([]byte(`{"code":200,"msg":"上传成功","data":{"id":9,"public_name":"notes.txt","size":5}}`))
		case "/files":
			assert.Equal(t, "2", r.URL.Query().Get("pageNum"))
			w.Write([]byte(`{"code":200,"rows":[{"id":9,"public_name":"notes.txt"}],"total":11}`))
		case "/files/9":
			w.Write([]byte(`{"code":200,"data":{"id":9,"download_url":"http://x/download/9"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	entry, err := c.Files.Upload(ctx, "notes.txt", strings.NewReader("hello"), "first")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", entry.PublicName)

	page, err := c.Files.List(ctx, dto.ListParams{PageNum: 2, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 11, page.Total)
	require.Len(t, page.Rows, 1)

	got, err := c.Files.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "http://x/download/9", got.DownloadURL)
}
