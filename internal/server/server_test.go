package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dyike/fupanxia/config"
	"github.com/dyike/fupanxia/internal/analysis"
	"github.com/dyike/fupanxia/internal/intake"
	"github.com/dyike/fupanxia/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func scenarioResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		Score:            12,
		Title:            "提款机",
		Tags:             []string{"追涨杀跌"},
		Roast:            "...",
		BehaviorAnalysis: []models.BehaviorPoint{{Point: "追涨", Description: "..."}},
		Suggestion:       "...",
	}
}

type fakeAnalyzer struct {
	result *models.AnalysisResult
	err    error
	gate   chan struct{}
	calls  atomic.Int32
}

func (f *fakeAnalyzer) Name() string { return "fake" }

func (f *fakeAnalyzer) Analyze(ctx context.Context, _ string) (*models.AnalysisResult, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.result, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Addr:            "127.0.0.1:0",
		MaxUploadBytes:  1 << 20,
		SessionTTL:      time.Hour,
		LoadingInterval: 2500 * time.Millisecond,
	}
}

func newTestServer(t *testing.T, a analysis.Analyzer) *Server {
	t.Helper()
	srv, err := New(testConfig(), a, nil)
	require.NoError(t, err)
	return srv
}

type client struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.srv.Handler().ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == SessionCookie {
			c.cookie = ck
		}
	}
	return rec
}

func (c *client) upload(path, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	c.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(c.t, err)
	_, err = part.Write(data)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *client) state() StateResponse {
	c.t.Helper()
	rec := c.do(httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(c.t, http.StatusOK, rec.Code)
	var out StateResponse
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (c *client) page() string {
	c.t.Helper()
	rec := c.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(c.t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestIndexStartsIdleAndSetsCookie(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, &fakeAnalyzer{})}
	body := c.page()
	require.NotNil(t, c.cookie)
	assert.True(t, c.cookie.HttpOnly)
	assert.Contains(t, body, `data-mode="idle"`)
	assert.Contains(t, body, `action="/upload"`)

	st := c.state()
	assert.Equal(t, models.ViewIdle, st.Mode)
	assert.True(t, st.AppState.IsZero())
	assert.Equal(t, 1, c.srv.Sessions().Len())
}

func TestUploadScenarioSuccess(t *testing.T) {
	a := &fakeAnalyzer{result: scenarioResult(), gate: make(chan struct{})}
	c := &client{t: t, srv: newTestServer(t, a)}

	rec := c.upload("/upload", "photo.png", "image/png", pngBytes)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	st := c.state()
	assert.Equal(t, models.ViewAnalyzing, st.Mode)
	assert.True(t, st.IsAnalyzing)
	require.NotNil(t, st.Image)
	assert.Equal(t, intake.BuildDataURL("image/png", pngBytes), *st.Image)
	assert.NotEmpty(t, st.LoadingMessage)

	page := c.page()
	assert.Contains(t, page, "鉴定中...")
	assert.Contains(t, page, `http-equiv="refresh"`)
	assert.NotContains(t, page, `action="/upload"`)

	close(a.gate)
	c.srv.Wait()

	st = c.state()
	assert.Equal(t, models.ViewResult, st.Mode)
	assert.Nil(t, st.Error)
	if diff := cmp.Diff(scenarioResult(), st.Result); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	page = c.page()
	assert.Contains(t, page, "提款机")
	assert.Contains(t, page, "Issue 1")
	assert.Contains(t, page, `class="score low"`)
	assert.Contains(t, page, "#股市复盘 #韭菜鉴定")
	assert.Contains(t, page, `src="data:image/png;base64,`)
}

func TestUploadScenarioNotImage(t *testing.T) {
	a := &fakeAnalyzer{result: scenarioResult()}
	c := &client{t: t, srv: newTestServer(t, a)}
	c.page()

	rec := c.upload("/upload", "notes.pdf", "application/pdf", []byte("%PDF-1.4"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), intake.NotImageNotice)

	c.srv.Wait()
	assert.True(t, c.state().AppState.IsZero())
	assert.Zero(t, a.calls.Load())
}

func TestUploadNotImageKeepsExistingResult(t *testing.T) {
	a := &fakeAnalyzer{result: scenarioResult()}
	c := &client{t: t, srv: newTestServer(t, a)}

	rec := c.upload("/api/analyze", "photo.png", "image/png", pngBytes)
	require.Equal(t, http.StatusOK, rec.Code)
	before := c.state()

	rec = c.upload("/api/analyze", "notes.pdf", "application/pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, before, c.state())
	assert.EqualValues(t, 1, a.calls.Load())
}

func TestUploadMissingFile(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, &fakeAnalyzer{})}
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
	rec := c.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgNoFile)
}

func TestUploadTooLarge(t *testing.T) {
	a := &fakeAnalyzer{}
	srv := newTestServer(t, a)
	srv.intake = intake.New(4)
	c := &client{t: t, srv: srv}

	rec := c.upload("/upload", "big.png", "image/png", pngBytes)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, a.calls.Load())
}

func TestUploadWhileAnalyzingConflicts(t *testing.T) {
	a := &fakeAnalyzer{result: scenarioResult(), gate: make(chan struct{})}
	c := &client{t: t, srv: newTestServer(t, a)}

	require.Equal(t, http.StatusSeeOther, c.upload("/upload", "photo.png", "image/png", pngBytes).Code)
	assert.Equal(t, http.StatusConflict, c.upload("/upload", "again.png", "image/png", pngBytes).Code)
	assert.Equal(t, http.StatusConflict, c.upload("/api/analyze", "again.png", "image/png", pngBytes).Code)

	close(a.gate)
	c.srv.Wait()
	assert.EqualValues(t, 1, a.calls.Load())
}

func TestResetDuringFlightDiscardsResult(t *testing.T) {
	a := &fakeAnalyzer{result: scenarioResult(), gate: make(chan struct{})}
	c := &client{t: t, srv: newTestServer(t, a)}

	c.upload("/upload", "photo.png", "image/png", pngBytes)
	rec := c.do(httptest.NewRequest(http.MethodPost, "/reset", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	close(a.gate)
	c.srv.Wait()
	assert.True(t, c.state().AppState.IsZero())
}

func TestSessionsAreIsolated(t *testing.T) {
	a := &fakeAnalyzer{result: scenarioResult()}
	srv := newTestServer(t, a)
	alice := &client{t: t, srv: srv}
	bob := &client{t: t, srv: srv}

	alice.upload("/api/analyze", "photo.png", "image/png", pngBytes)
	assert.Equal(t, models.ViewResult, alice.state().Mode)
	assert.Equal(t, models.ViewIdle, bob.state().Mode)
	assert.NotEqual(t, alice.cookie.Value, bob.cookie.Value)
}

// geminiBackend fakes the GenAI REST endpoint.
func geminiBackend(t *testing.T, status int, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend down","status":"INTERNAL"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func geminiAnalyzer(t *testing.T, backend *httptest.Server) analysis.Analyzer {
	t.Helper()
	a, err := analysis.NewGeminiAnalyzer(context.Background(), analysis.GeminiConfig{
		APIKey:     "test-key",
		BaseURL:    backend.URL,
		HTTPClient: backend.Client(),
	}, nil)
	require.NoError(t, err)
	return a
}

func TestScenarioProviderFailureThenRetry(t *testing.T) {
	backend := geminiBackend(t, http.StatusInternalServerError, "")
	c := &client{t: t, srv: newTestServer(t, geminiAnalyzer(t, backend))}

	require.Equal(t, http.StatusSeeOther, c.upload("/upload", "photo.png", "image/png", pngBytes).Code)
	c.srv.Wait()

	st := c.state()
	assert.Equal(t, models.ViewError, st.Mode)
	require.NotNil(t, st.Error)
	assert.Equal(t, analysis.MsgTransport, *st.Error)
	assert.NotContains(t, *st.Error, "backend down")
	assert.Nil(t, st.Result)
	assert.Contains(t, c.page(), "换一张图试试")

	rec := c.do(httptest.NewRequest(http.MethodPost, "/reset", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, models.ViewIdle, c.state().Mode)
}

func TestScenarioNotJSONBecomesError(t *testing.T) {
	backend := geminiBackend(t, http.StatusOK, "not json")
	c := &client{t: t, srv: newTestServer(t, geminiAnalyzer(t, backend))}

	rec := c.upload("/api/analyze", "photo.png", "image/png", pngBytes)
	require.Equal(t, http.StatusOK, rec.Code)

	var st StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, models.ViewError, st.Mode)
	require.NotNil(t, st.Error)
	assert.Equal(t, analysis.MsgUnparsable, *st.Error)
}

func TestAPIReset(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, &fakeAnalyzer{err: fmt.Errorf("boom")})}
	c.upload("/api/analyze", "photo.png", "image/png", pngBytes)
	require.Equal(t, models.ViewError, c.state().Mode)

	rec := c.do(httptest.NewRequest(http.MethodPost, "/api/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var st StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, models.ViewIdle, st.Mode)
	assert.JSONEq(t, `{"isAnalyzing":false,"image":null,"result":null,"error":null,"mode":"idle"}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, &fakeAnalyzer{})}
	rec := c.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","provider":"fake"}`, rec.Body.String())
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(t, &fakeAnalyzer{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
