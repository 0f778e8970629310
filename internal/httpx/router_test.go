package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/adboard/internal/ingest"
	"github.com/AngelCh415/adboard/internal/metrics"
	"github.com/AngelCh415/adboard/internal/store"
)

const adsCSV = "时间,消费,展现量,点击量\n2024-10-31,94.00,1200,34\n"

type testServer struct {
	h         http.Handler
	publicDir string
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	profiles, err := ingest.NewRegistry(ingest.DefaultProfiles(ingest.DefaultCurrencyRate)...)
	require.NoError(t, err)

	if opts.PublicDir == "" {
		opts.PublicDir = t.TempDir()
	}
	reg := prometheus.NewRegistry()
	opts.Gatherer = reg

	st := store.NewMemoryStore()
	pipe := ingest.NewPipeline(profiles, st, store.NewJSONFileWriter(opts.PublicDir), metrics.NewRecorder(reg), log)
	return &testServer{
		h:         NewRouter(log, pipe, metrics.NewService(st), opts),
		publicDir: opts.PublicDir,
	}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func uploadRequest(t *testing.T, profile, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload/"+profile, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, Options{})
	rec, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("redis down") }})
	rec, _ = down.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListProfiles(t *testing.T) {
	s := newTestServer(t, Options{})
	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 4.0, body["total"])
}

func TestUploadAndFetch(t *testing.T) {
	s := newTestServer(t, Options{})

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/data/xiaowang-ads", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["needsUpload"])

	rec, body = s.do(t, uploadRequest(t, "xiaowang-ads", "report.csv", adsCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 1.0, body["total"])
	version, _ := body["version"].(string)
	require.NotEmpty(t, version)
	assert.NotEmpty(t, body["uploadedAt"])

	data := body["data"].(map[string]any)
	record := data["records"].([]any)[0].(map[string]any)
	assert.Equal(t, "2024-10-31", record["date"])
	assert.Equal(t, 94.0, record["cost"])
	assert.Equal(t, 1200.0, record["impressions"])
	assert.Equal(t, 34.0, record["clicks"])

	rec, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/data/xiaowang-ads", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, version, body["version"])

	rec, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/data/xiaowang-ads/daily?from=2024-10-01", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["total"])

	rec, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/data/lifecar-ads", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["needsUpload"])
}

func TestUploadConvertsAndPersists(t *testing.T) {
	s := newTestServer(t, Options{})

	rec, body := s.do(t, uploadRequest(t, "lifecar-ads", "report.csv", adsCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	record := body["data"].(map[string]any)["records"].([]any)[0].(map[string]any)
	assert.InDelta(t, 20.0, record["cost"], 1e-9)

	b, err := os.ReadFile(filepath.Join(s.publicDir, "lifecar-ads.json"))
	require.NoError(t, err)
	assert.Contains(t, string(b), body["version"])

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/public/lifecar-ads.json", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadNotes(t *testing.T) {
	s := newTestServer(t, Options{})
	in := "导出\n首次发布时间,体裁,笔记标题,笔记链接,笔记状态\n2024-10-31,视频,A,https://x/1,已发布\n2024-10-30,图文,B,https://x/2,笔记违规\n"

	rec, body := s.do(t, uploadRequest(t, "xiaowang-notes", "notes.csv", in))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1.0, body["total"])
	notes := body["data"].(map[string]any)["notes"].([]any)
	require.Len(t, notes, 1)
	assert.Equal(t, "A", notes[0].(map[string]any)["name"])

	rec, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/data/xiaowang-notes/daily", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["needsUpload"])
}

func TestUploadRejections(t *testing.T) {
	s := newTestServer(t, Options{MaxUploadBytes: 4 << 10})

	_, first := s.do(t, uploadRequest(t, "xiaowang-ads", "report.csv", adsCSV))
	require.Equal(t, true, first["success"])

	tests := []struct {
		name   string
		req    *http.Request
		status int
		errMsg string
	}{
		{"unsupported extension", uploadRequest(t, "xiaowang-ads", "report.txt", adsCSV), http.StatusBadRequest, ingest.ErrUnsupportedExtension.Error()},
		{"header only", uploadRequest(t, "xiaowang-ads", "report.csv", "时间,消费\n"), http.StatusBadRequest, ingest.ErrTooFewRows.Error()},
		{"no multipart", httptest.NewRequest(http.MethodPost, "/api/upload/xiaowang-ads", strings.NewReader("x")), http.StatusBadRequest, ingest.ErrMissingFile.Error()},
		{"wrong field", func() *http.Request {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			require.NoError(t, mw.WriteField("other", "x"))
			require.NoError(t, mw.Close())
			req := httptest.NewRequest(http.MethodPost, "/api/upload/xiaowang-ads", &buf)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			return req
		}(), http.StatusBadRequest, ingest.ErrMissingFile.Error()},
		{"too large", uploadRequest(t, "xiaowang-ads", "report.csv", adsCSV+strings.Repeat("2024-10-31,1,1,1\n", 1000)), http.StatusBadRequest, ""},
		{"unknown profile", uploadRequest(t, "nobody-ads", "report.csv", adsCSV), http.StatusNotFound, ingest.ErrUnknownProfile.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := s.do(t, tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, body["error"])
			if tt.errMsg != "" {
				assert.Equal(t, tt.errMsg, body["error"])
			}
		})
	}

	_, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/data/xiaowang-ads", nil))
	assert.Equal(t, first["version"], body["version"])
}

func TestClear(t *testing.T) {
	s := newTestServer(t, Options{})
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodDelete, "/api/data/xiaowang-ads", nil),
		httptest.NewRequest(http.MethodPost, "/api/data/xiaowang-ads/clear", nil),
	} {
		rec, _ := s.do(t, uploadRequest(t, "xiaowang-ads", "report.csv", adsCSV))
		require.Equal(t, http.StatusOK, rec.Code)

		rec, body := s.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])

		_, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/data/xiaowang-ads", nil))
		assert.Equal(t, true, body["needsUpload"])
	}
}

func TestDataUnknownProfile(t *testing.T) {
	s := newTestServer(t, Options{})
	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/data/nobody", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "nobody", body["details"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, Options{})
	rec, _ := s.do(t, uploadRequest(t, "xiaowang-ads", "report.csv", adsCSV))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `adboard_uploads_total{outcome="ok",profile="xiaowang-ads"} 1`)
}

func TestRequestIDPropagates(t *testing.T) {
	s := newTestServer(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec, _ := s.do(t, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
