package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/sonicprint/pkg/logger"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/audio"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/fingerprint"
	"github.com/himanishpuri/sonicprint/pkg/sonicprint/random"
)

func setupTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	temp := t.TempDir()
	svc, err := sonicprint.NewService(
		sonicprint.WithStorage(sonicprint.NewMemoryStorage()),
		sonicprint.WithTempDir(temp),
		sonicprint.WithLogger(logger.Discard()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	s := NewServer(svc, &ServerConfig{TempDir: temp, AllowedOrigins: []string{"*"}})
	s.log = logger.Discard()
	return s, s.setupRoutes()
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func sawtoothBody(t *testing.T, name string, n int) io.Reader {
	t.Helper()
	raw := &fingerprint.Raw{Shape: [2]float64{float64(n), 50}}
	for i := 0; i < n; i++ {
		raw.X = append(raw.X, float64(i))
		raw.Y = append(raw.Y, float64(i%50))
	}
	b, err := json.Marshal(CreateFingerprintRequest{Name: name, Fingerprint: raw})
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestHealth(t *testing.T) {
	_, h := setupTestServer(t)

	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestFingerprintLifecycle(t *testing.T) {
	_, h := setupTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/fingerprints/current", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/fingerprints", sawtoothBody(t, "saw", 200))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[FingerprintResponse](t, rec)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "saw", created.Name)
	assert.Equal(t, 200, created.Samples)
	require.NotNil(t, created.Derived)
	assert.Len(t, created.Derived.Coords, 200)

	rec = do(t, h, http.MethodGet, "/api/fingerprints/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	current := decode[fingerprint.Derived](t, rec)
	assert.Equal(t, created.Derived.Hash, current.Hash)

	rec = do(t, h, http.MethodGet, "/api/fingerprints", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[ListFingerprintsResponse](t, rec)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, created.ID, list.Fingerprints[0].ID)

	rec = do(t, h, http.MethodGet, "/api/fingerprints/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[FingerprintResponse](t, rec)
	assert.Equal(t, created.Derived.Hash, got.Derived.Hash)

	rec = do(t, h, http.MethodDelete, "/api/fingerprints/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/fingerprints/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/fingerprints/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoadFingerprintRejectsBadInput(t *testing.T) {
	_, h := setupTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"missing name", `{"fingerprint":{"shape":[1,1],"coords":{"x":[0],"y":[0]}}}`},
		{"missing fingerprint", `{"name":"x"}`},
		{"mismatched columns", `{"name":"x","fingerprint":{"shape":[1,1],"coords":{"x":[0,1],"y":[0]}}}`},
		{"negative sample", `{"name":"x","fingerprint":{"shape":[1,1],"coords":{"x":[0],"y":[-1]}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/fingerprints", bytes.NewBufferString(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, h := setupTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPut, "/api/fingerprints"},
		{http.MethodPost, "/api/fingerprints/abc"},
		{http.MethodGet, "/api/analyse"},
		{http.MethodDelete, "/api/fingerprints/current"},
	} {
		rec := do(t, h, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := setupTestServer(t)
	s.config.AllowedOrigins = []string{"https://example.org"}
	h := s.setupRoutes()

	req := httptest.NewRequest(http.MethodOptions, "/api/fingerprints", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://example.org", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://elsewhere.test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func uploadBody(t *testing.T, path string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", filepath.Base(path))
	require.NoError(t, err)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = io.Copy(part, f)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAnalyseUpload(t *testing.T) {
	_, h := setupTestServer(t)

	rnd := random.New(3)
	samples := make([]float64, 8000)
	for i := range samples {
		samples[i] = rnd.Range(-0.5, 0.5)
	}
	path := filepath.Join(t.TempDir(), "noise.wav")
	require.NoError(t, audio.WriteWAV(path, &audio.Track{Name: "noise", Samples: samples, SampleRate: 8000}))

	body, contentType := uploadBody(t, path)
	req := httptest.NewRequest(http.MethodPost, "/api/analyse?frames=true", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[AnalyseResponse](t, rec)
	assert.Equal(t, "noise.wav", resp.Name)
	assert.Equal(t, int64(1000), resp.DurationMs)
	assert.InDelta(t, 60, resp.FrameCount, 1)
	assert.Len(t, resp.Frames, resp.FrameCount)
	assert.NotNil(t, resp.TriggersMs)
	assert.GreaterOrEqual(t, resp.PeakPower, resp.MeanPower)
}

func TestAnalyseRequiresFile(t *testing.T) {
	_, h := setupTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "nothing"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyse", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
