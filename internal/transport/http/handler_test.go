package http

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bembido/video-to-quiz/internal/app"
	"github.com/bembido/video-to-quiz/internal/domain"
	"github.com/bembido/video-to-quiz/internal/infra/memory"
	"github.com/bembido/video-to-quiz/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type testEnv struct {
	server    *httptest.Server
	catalog   *memory.Catalog
	uploadDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	catalog := memory.NewCatalog(180, 600, 0)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	service := app.NewGateService(catalog, memory.NewProgressLedger(), app.WithRecorder(m))
	dir := t.TempDir()
	handler := NewHandler(service, Options{UploadDir: dir, Metrics: m, Gatherer: reg})
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return &testEnv{server: server, catalog: catalog, uploadDir: dir}
}

func (e *testEnv) do(t *testing.T, method, path, clientID string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if clientID != "" {
		req.Header.Set(ClientIDHeader, clientID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) answersFor(t *testing.T, segmentID string, correct bool) []map[string]string {
	t.Helper()
	q, err := e.catalog.Quiz(context.Background(), segmentID)
	if err != nil {
		t.Fatalf("quiz: %v", err)
	}
	items := make([]map[string]string, 0, len(q.Questions))
	for _, question := range q.Questions {
		answer := "wrong"
		if correct {
			answer = strings.ToUpper(question.Accepted[0])
		}
		items = append(items, map[string]string{"question_id": question.ID, "answer": answer})
	}
	return items
}

func TestHTTPGatingFlow(t *testing.T) {
	env := newTestEnv(t)

	var summary domain.VideoSummary
	status := env.do(t, http.MethodPost, "/video/upload", "", map[string]any{"video_url": "https://example.com/a.mp4", "duration_seconds": 400}, &summary)
	if status != http.StatusOK || summary.SegmentsCount != 3 {
		t.Fatalf("upload: status=%d summary=%+v", status, summary)
	}

	var segments []domain.SegmentView
	if status := env.do(t, http.MethodGet, "/video/"+summary.ID+"/segments", "c1", nil, &segments); status != http.StatusOK {
		t.Fatalf("segments status %d", status)
	}
	if segments[0].IsLocked || !segments[1].IsLocked {
		t.Fatalf("expected only first segment unlocked: %+v", segments)
	}

	var result domain.AnswerResult
	body := map[string]any{"client_id": "c1", "answers": env.answersFor(t, segments[0].ID, true)}
	if status := env.do(t, http.MethodPost, "/segment/"+segments[0].ID+"/answer", "", body, &result); status != http.StatusOK {
		t.Fatalf("answer status %d", status)
	}
	if !result.Correct || result.NextSegmentID == nil || *result.NextSegmentID != segments[1].ID {
		t.Fatalf("unexpected result %+v", result)
	}

	var quiz domain.QuizView
	if status := env.do(t, http.MethodGet, "/segment/"+segments[1].ID+"/quiz", "c1", nil, &quiz); status != http.StatusOK {
		t.Fatalf("quiz status %d", status)
	}
	if len(quiz.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(quiz.Questions))
	}

	body = map[string]any{"answers": env.answersFor(t, segments[1].ID, false)}
	if status := env.do(t, http.MethodPost, "/segment/"+segments[1].ID+"/answer", "c1", body, &result); status != http.StatusOK {
		t.Fatalf("answer status %d", status)
	}
	if result.Correct || result.RetryFrom == nil || *result.RetryFrom != "00:02:13" {
		t.Fatalf("expected retry marker, got %+v", result)
	}

	var errResp errorBody
	if status := env.do(t, http.MethodGet, "/segment/"+segments[1].ID+"/quiz", "c2", nil, &errResp); status != http.StatusForbidden || errResp.Code != "segment_locked" {
		t.Fatalf("expected 403 segment_locked, got %d %+v", status, errResp)
	}

	var progress domain.ProgressView
	if status := env.do(t, http.MethodGet, "/video/"+summary.ID+"/progress", "c1", nil, &progress); status != http.StatusOK {
		t.Fatalf("progress status %d", status)
	}
	if progress.HighestUnlockedIdx != 1 || len(progress.PassedSegments) != 1 {
		t.Fatalf("unexpected progress %+v", progress)
	}
}

func TestHTTPErrorMapping(t *testing.T) {
	env := newTestEnv(t)

	var errResp errorBody
	if status := env.do(t, http.MethodGet, "/video/nope/segments", "", nil, &errResp); status != http.StatusNotFound || errResp.Code != "not_found" {
		t.Fatalf("expected 404, got %d %+v", status, errResp)
	}
	if status := env.do(t, http.MethodPost, "/video/upload", "", map[string]any{}, &errResp); status != http.StatusBadRequest {
		t.Fatalf("expected 400 without source, got %d", status)
	}

	var summary domain.VideoSummary
	env.do(t, http.MethodPost, "/video/upload", "", map[string]any{"video_url": "u"}, &summary)
	if summary.DurationSeconds != 600 || summary.SegmentsCount != 4 {
		t.Fatalf("expected default duration, got %+v", summary)
	}
	var segments []domain.SegmentView
	env.do(t, http.MethodGet, "/video/"+summary.ID+"/segments", "", nil, &segments)

	body := map[string]any{"answers": []map[string]string{}}
	if status := env.do(t, http.MethodPost, "/segment/"+segments[0].ID+"/answer", "", body, &errResp); status != http.StatusBadRequest || errResp.Code != "client_required" {
		t.Fatalf("expected 400 client_required, got %d %+v", status, errResp)
	}
	if status := env.do(t, http.MethodGet, "/video/"+summary.ID+"/progress", "", nil, &errResp); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for anonymous progress, got %d", status)
	}
}

func TestHTTPUploadRejectsInvalidDuration(t *testing.T) {
	env := newTestEnv(t)

	for _, raw := range []string{"NaN", "+Inf", "-Inf"} {
		form := url.Values{"video_url": {"https://example.com/" + raw}, "duration_seconds": {raw}}
		resp, err := http.PostForm(env.server.URL+"/video/upload", form)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		var errResp errorBody
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest || errResp.Code != "invalid_duration" {
			t.Fatalf("%s: expected 400 invalid_duration, got %d %+v", raw, resp.StatusCode, errResp)
		}
	}

	var errResp errorBody
	body := map[string]any{"video_url": "https://example.com/huge", "duration_seconds": 1e15}
	if status := env.do(t, http.MethodPost, "/video/upload", "", body, &errResp); status != http.StatusBadRequest || errResp.Code != "invalid_duration" {
		t.Fatalf("expected 400 invalid_duration for oversized duration, got %d %+v", status, errResp)
	}

	var summary domain.VideoSummary
	body["duration_seconds"] = 400
	if status := env.do(t, http.MethodPost, "/video/upload", "", body, &summary); status != http.StatusOK || summary.SegmentsCount != 3 {
		t.Fatalf("expected the source to register after a rejected attempt, got %d %+v", status, summary)
	}
}

func TestWriteJSONEncodingFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"value": math.NaN()})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var errResp errorBody
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil || errResp.Code != "internal" {
		t.Fatalf("unexpected body %q: %v", rec.Body.String(), err)
	}
}

func TestHTTPUploadDeduplicatesAndStoresFile(t *testing.T) {
	env := newTestEnv(t)

	upload := func() domain.VideoSummary {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "lecture.mp4")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = fw.Write([]byte("not really a video"))
		_ = mw.WriteField("duration_seconds", "200")
		_ = mw.Close()

		resp, err := http.Post(env.server.URL+"/video/upload", mw.FormDataContentType(), &buf)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("upload status %d", resp.StatusCode)
		}
		var summary domain.VideoSummary
		if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return summary
	}

	first := upload()
	second := upload()
	if first.ID != second.ID || first.SegmentsCount != 2 || second.SegmentsCount != 2 {
		t.Fatalf("expected dedup, got %+v and %+v", first, second)
	}

	entries, err := os.ReadDir(env.uploadDir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != first.ID+"_lecture.mp4" {
		t.Fatalf("expected one stored upload, got %v", entries)
	}
	data, _ := os.ReadFile(filepath.Join(env.uploadDir, entries[0].Name()))
	if string(data) != "not really a video" {
		t.Fatalf("unexpected stored bytes %q", data)
	}

	var detail domain.VideoDetail
	if status := env.do(t, http.MethodGet, "/video/"+first.ID, "", nil, &detail); status != http.StatusOK || detail.SourceType != "upload" {
		t.Fatalf("unexpected detail %d %+v", status, detail)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	var health map[string]string
	if status := env.do(t, http.MethodGet, "/health", "", nil, &health); status != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("unexpected health %d %v", status, health)
	}

	resp, err := http.Get(env.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), "http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}
