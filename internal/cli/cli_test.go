package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/therapy-console/internal/config"
	"github.com/hongminglow/therapy-console/internal/logging"
	"github.com/hongminglow/therapy-console/internal/server"
	"github.com/hongminglow/therapy-console/internal/storage/blob"
	"github.com/hongminglow/therapy-console/internal/storage/memory"
)

const testPassword = "admin12345"

// startTestServer starts a dev server on an in-memory store and returns the URL.
func startTestServer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	_, err := server.EnsureAdmin(ctx, store, testPassword)
	require.NoError(t, err)
	require.NoError(t, server.SeedMockData(ctx, store, 42))
	blobs, err := blob.New(t.TempDir())
	require.NoError(t, err)

	cfg := config.ServerConfig{JWTSecret: "cli-secret", JWTIssuer: "cli-test", JWTTTL: time.Hour, CORSOrigins: []string{"*"}}
	ts := httptest.NewServer(server.Handler(cfg, server.Stores{Users: store, Records: store, Blobs: blobs}, logging.Discard()))
	t.Cleanup(ts.Close)
	return ts.URL
}

type runner struct {
	t    *testing.T
	base []string
}

func newRunner(t *testing.T, serverURL string, cacheArgs ...string) *runner {
	t.Helper()
	if len(cacheArgs) == 0 {
		cacheArgs = []string{"--cache", "file", "--cache-path", filepath.Join(t.TempDir(), "cache.json")}
	}
	return &runner{t: t, base: append([]string{"--server", serverURL, "--log-level", "error"}, cacheArgs...)}
}

func (r *runner) run(stdin string, args ...string) (string, error) {
	r.t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(append([]string{}, r.base...), args...))
	err := cmd.Execute()
	return out.String(), err
}

func (r *runner) mustRun(args ...string) string {
	r.t.Helper()
	out, err := r.run("", args...)
	require.NoError(r.t, err, out)
	return out
}

func TestLoginWhoamiLogout(t *testing.T) {
	r := newRunner(t, startTestServer(t))

	assert.Contains(t, r.mustRun("whoami"), "Not logged in")

	out, err := r.run("admin\nwrong-password\n", "login")
	require.Error(t, err)
	assert.Contains(t, out, "Username: ")

	out, err = r.run("admin\n"+testPassword+"\n", "login")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Logged in as 系统管理员")

	out = r.mustRun("whoami")
	assert.Contains(t, out, "Roles:       admin")
	assert.Contains(t, out, "*:*:*")

	assert.Contains(t, r.mustRun("logout"), "Logged out")
	assert.Contains(t, r.mustRun("whoami"), "Not logged in")
}

func TestNavigate(t *testing.T) {
	r := newRunner(t, startTestServer(t))

	out := r.mustRun("navigate", "/report")
	assert.Contains(t, out, "-> /login?redirect=/report")
	assert.Contains(t, out, "(login)")

	r.mustRun("login", "-u", "admin", "-p", testPassword)
	out = r.mustRun("navigate", "/login")
	assert.Contains(t, out, "-> /")
	assert.Contains(t, out, "/device  (device)")

	out = r.mustRun("navigate", "/settings/dict/data/sys_user_sex")
	assert.Contains(t, out, "设置 / 字典数据")
	assert.Contains(t, out, "dictType=sys_user_sex")

	_, err := r.run("", "navigate", "/nowhere")
	assert.Error(t, err)
}

func TestNavigateAnonymous(t *testing.T) {
	r := newRunner(t, startTestServer(t))
	out := r.mustRun("--allow-anonymous", "navigate", "/device")
	assert.Contains(t, out, "/device  (device)")
	assert.NotContains(t, out, "login")
}

func TestRoutes(t *testing.T) {
	r := newRunner(t, startTestServer(t))

	out := r.mustRun("routes")
	assert.Contains(t, out, "/settings/dict/data/:dictType")
	assert.Contains(t, out, "/device")

	out = r.mustRun("routes", "--menu")
	assert.Contains(t, out, "设备管理  /device")
	assert.Contains(t, out, "  字典数据  /settings/dict/data/:dictType")
	assert.NotContains(t, out, "/login")
}

func TestListAndDevices(t *testing.T) {
	r := newRunner(t, startTestServer(t))
	r.mustRun("login", "-u", "admin", "-p", testPassword)

	out := r.mustRun("list", "devices", "--size", "5")
	assert.Contains(t, out, "PICO00001")
	assert.Contains(t, out, "50 total")

	r.mustRun("device", "add", "PICO09999", "--in-use")
	out = r.mustRun("list", "devices", "-f", "picoNumber=PICO09999")
	assert.Contains(t, out, "使用中")
	assert.Contains(t, out, "1 total")

	r.mustRun("device", "set-status", "51", "PICO09999", "0")
	out = r.mustRun("list", "devices", "-f", "picoNumber=PICO09999")
	assert.Contains(t, out, "空闲")

	assert.Contains(t, r.mustRun("device", "delete", "51"), "Deleted 1 device(s)")
	assert.Contains(t, r.mustRun("list", "devices", "-f", "picoNumber=PICO09999"), "No records found.")

	out = r.mustRun("list", "dict-data", "-f", "dictType=sys_treat_status")
	assert.Contains(t, out, "已完成")
	assert.Contains(t, out, "3 total")

	for _, res := range []string{"visits", "reports", "patients", "videos", "dict"} {
		out := r.mustRun("list", res)
		assert.Contains(t, out, "total", res)
	}

	_, err := r.run("", "list", "nothing")
	assert.ErrorContains(t, err, "unknown resource")
	_, err = r.run("", "list", "devices", "-f", "broken")
	assert.ErrorContains(t, err, "key=value")
}

func TestListRequiresLogin(t *testing.T) {
	r := newRunner(t, startTestServer(t))
	_, err := r.run("", "list", "devices")
	assert.ErrorContains(t, err, "401")
}

func TestConfigCommand(t *testing.T) {
	r := newRunner(t, startTestServer(t))
	r.mustRun("login", "-u", "admin", "-p", testPassword)

	out := r.mustRun("config")
	assert.Contains(t, out, "whisper-1 (openai)")
	assert.Contains(t, out, "10 MiB")
	assert.Contains(t, out, "1:00")
	assert.Contains(t, out, "Answers shown as 自动")
	assert.Contains(t, out, "bing          on")
}

func TestSessionSurvivesAcrossBackends(t *testing.T) {
	url := startTestServer(t)

	sqlite := newRunner(t, url, "--cache", "sqlite", "--cache-path", filepath.Join(t.TempDir(), "cache.db"))
	sqlite.mustRun("login", "-u", "admin", "-p", testPassword)
	assert.Contains(t, sqlite.mustRun("whoami"), "admin")

	mr := miniredis.RunT(t)
	redis := newRunner(t, url, "--cache", "redis", "--redis-url", "redis://"+mr.Addr()+"/0")
	redis.mustRun("login", "-u", "admin", "-p", testPassword)
	assert.Contains(t, redis.mustRun("whoami"), "admin")
	assert.True(t, mr.Exists("therapy-console:TOKEN"))
}

func TestUploadAndFiles(t *testing.T) {
	r := newRunner(t, startTestServer(t))
	r.mustRun("login", "-u", "admin", "-p", testPassword)
	assert.Contains(t, r.mustRun("files"), "No files stored.")

	dir := t.TempDir()
	clip := filepath.Join(dir, "session 1.mp4")
	require.NoError(t, os.WriteFile(clip, bytes.Repeat([]byte("frame"), 1000), 0o600))
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("went well"), 0o600))

	out := r.mustRun("upload", clip, "--chunk-size", "1", "--note", "first visit")
	assert.Contains(t, out, "Uploaded session 1.mp4 as session_1.mp4 (4.9 KiB)")
	assert.Contains(t, out, "/download/")

	out = r.mustRun("upload", notes, "--single")
	assert.Contains(t, out, "as notes.txt (9 B)")

	out = r.mustRun("files")
	assert.Contains(t, out, "session_1.mp4")
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "2 files")

	_, err := r.run("", "upload", filepath.Join(dir, "missing.bin"))
	assert.Error(t, err)
}
