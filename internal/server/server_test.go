package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/vizloom-cli/internal/ai"
	"github.com/KaramelBytes/vizloom-cli/internal/archive"
	"github.com/KaramelBytes/vizloom-cli/internal/chart"
	"github.com/KaramelBytes/vizloom-cli/internal/logging"
	"github.com/KaramelBytes/vizloom-cli/internal/workflow"
)

type replyRuntime struct {
	reply string
	err   error
}

func (r *replyRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &ai.GenerateResponse{Model: req.Model, Choices: []ai.Choice{{Message: ai.Message{Content: r.reply}}}}, nil
}

const lineReply = "```js\nnew Chart(document.getElementById('chart-canvas'), {type: 'line', data: {labels: ['Jan', 'Feb'], datasets: [{label: 'sales', data: [10, 12]}]}});\n```"

func newTestServer(t *testing.T, rt ai.Runtime) (*Server, *archive.Store, *bytes.Buffer) {
	t.Helper()
	store, err := archive.Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	var logs bytes.Buffer
	logger := logging.New(logging.LevelBasic, &logs)
	svc := workflow.New(rt, workflow.Options{}, chart.NewCanvas(300, 200, chart.FormatPNG), store, logger)
	return New(svc, logger, 2), store, &logs
}

func uploadRequest(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

const salesCSV = "month,sales\nJan,10\nFeb,12\nMar,9\n"

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAnalyze(t *testing.T) {
	s, store, logs := newTestServer(t, &replyRuntime{reply: "# Sales\n- **Jan** is strong"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, uploadRequest(t, "/api/analyze", "sales.csv", salesCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Name    string `json:"name"`
		Preview string `json:"preview"`
		HTML    string `json:"html"`
		Summary struct {
			Rows int `json:"rows"`
		} `json:"summary"`
	}
	decodeBody(t, rec, &got)
	assert.Equal(t, "sales.csv", got.Name)
	assert.Equal(t, "month,sales\nJan,10\n... 2 more lines not shown", got.Preview)
	assert.Equal(t, 3, got.Summary.Rows)
	assert.Equal(t, "<h3>Sales</h3>\n<ul><li><strong>Jan</strong> is strong</li></ul>", got.HTML)
	assert.Contains(t, logs.String(), "POST /api/analyze 200")

	entries, err := filepath.Glob(filepath.Join(store.Root(), "backups", "sales_*"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAnalyzeNonFiniteCells(t *testing.T) {
	s, store, _ := newTestServer(t, &replyRuntime{reply: "temperatures"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, uploadRequest(t, "/api/analyze", "temps.csv", "city,temp\nOslo,3\nRome,NaN\nLima,Inf\n", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Summary struct {
			Columns []struct {
				Type string `json:"type"`
			} `json:"columns"`
		} `json:"summary"`
	}
	decodeBody(t, rec, &got)
	require.Len(t, got.Summary.Columns, 2)
	assert.Equal(t, "categorical", got.Summary.Columns[1].Type)

	entries, err := filepath.Glob(filepath.Join(store.Root(), "backups", "temps_*"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]any{"v": math.NaN()})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var e map[string]string
	decodeBody(t, rec, &e)
	assert.Contains(t, e["error"], "encode response")
}

func TestAnalyzeErrors(t *testing.T) {
	s, _, _ := newTestServer(t, &replyRuntime{err: &ai.AuthError{APIError: &ai.APIError{StatusCode: 401, Message: "bad key"}}})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "/api/analyze", "", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing file")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "/api/analyze", "notes.pdf", "x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "/api/analyze", "sales.csv", salesCSV, nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var e map[string]string
	decodeBody(t, rec, &e)
	assert.Contains(t, e["error"], "authentication failed")
}

func TestChartAndArchiveRoutes(t *testing.T) {
	s, _, _ := newTestServer(t, &replyRuntime{reply: lineReply})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "/api/chart", "sales.csv", salesCSV, map[string]string{"question": "sales trend"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got struct {
		Code   string `json:"code"`
		Model  string `json:"model"`
		Images []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"images"`
		Config struct {
			Type string `json:"type"`
		} `json:"config"`
	}
	decodeBody(t, rec, &got)
	assert.Equal(t, "line", got.Config.Type)
	assert.Equal(t, "deepseek-coder", got.Model)
	assert.True(t, strings.HasPrefix(got.Code, "new Chart("), got.Code)
	require.Len(t, got.Images, 1)
	assert.True(t, strings.HasPrefix(got.Images[0].URL, "/get_image?path="+got.Images[0].Name), got.Images[0].URL)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, got.Images[0].URL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store, max-age=0", rec.Header().Get("Cache-Control"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list_archive", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var days []archive.Day
	decodeBody(t, rec, &days)
	require.Len(t, days, 1)
	assert.Equal(t, got.Images[0].Name, days[0].Files[0].Name)
	assert.Equal(t, "line", days[0].Files[0].ChartType)
}

func TestChartErrors(t *testing.T) {
	s, _, _ := newTestServer(t, &replyRuntime{reply: "Sorry, no chart."})
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "/api/chart", "sales.csv", salesCSV, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing question")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "/api/chart", "sales.csv", salesCSV, map[string]string{"question": "bars"}))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "unexpected code format")
}

func TestGetImageErrors(t *testing.T) {
	s, _, _ := newTestServer(t, nil)
	h := s.Handler()
	cases := map[string]int{
		"/get_image?path=../secret.png":   http.StatusBadRequest,
		"/get_image?path=x.exe":           http.StatusBadRequest,
		"/get_image":                      http.StatusBadRequest,
		"/get_image?path=missing.png":     http.StatusNotFound,
		"/get_image?path=a.png&date=oops": http.StatusBadRequest,
	}
	for url, want := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, want, rec.Code, url)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), url)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list_archive", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestRender(t *testing.T) {
	s, _, _ := newTestServer(t, nil)
	h := s.Handler()

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader(body)))
		return rec
	}

	rec := post(`{"markdown": "## Title\n1. one"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]string
	decodeBody(t, rec, &got)
	assert.Equal(t, "<h4>Title</h4>\n<ol><li>one</li></ol>", got["html"])

	rec = post(`{"markdown": "| a |\n|---|\n| 1 |", "engine": "goldmark"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &got)
	assert.Contains(t, got["html"], "<table>")

	assert.Equal(t, http.StatusBadRequest, post(`{"markdown": "x", "engine": "pandoc"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`not json`).Code)
}
