package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bembido/video-to-quiz/internal/app"
	"github.com/bembido/video-to-quiz/internal/domain"
	"github.com/bembido/video-to-quiz/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ClientIDHeader carries the caller's opaque client id.
const ClientIDHeader = "X-Client-Id"

const maxUploadMemory = 32 << 20

// Options configures the HTTP surface.
type Options struct {
	UploadDir   string
	CORSOrigins []string
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
}

// Handler exposes the gating use cases over REST and websockets.
type Handler struct {
	service   *app.GateService
	uploadDir string
	origins   []string
	logger    *slog.Logger
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	ws        *WSHandler
}

func NewHandler(service *app.GateService, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		service:   service,
		uploadDir: opts.UploadDir,
		origins:   origins,
		logger:    logger,
		metrics:   opts.Metrics,
		gatherer:  opts.Gatherer,
		ws:        NewWSHandler(service, logger),
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(h.logRequests)

	r.Get("/health", h.health)
	r.Post("/video/upload", h.uploadVideo)
	r.Get("/video/{videoID}", h.getVideo)
	r.Get("/video/{videoID}/segments", h.listSegments)
	r.Get("/video/{videoID}/progress", h.getProgress)
	r.Get("/segment/{segmentID}/quiz", h.getQuiz)
	r.Post("/segment/{segmentID}/answer", h.submitAnswer)
	r.Get("/ws", h.ws.ServeWS)
	if h.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if h.metrics != nil {
			h.metrics.ObserveRequest(r.Method, route, status, elapsed)
		}
		h.logger.LogAttrs(r.Context(), slog.LevelInfo, "request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", elapsed),
			slog.String("client_id", r.Header.Get(ClientIDHeader)),
		)
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type uploadRequest struct {
	VideoURL        string   `json:"video_url"`
	DurationSeconds *float64 `json:"duration_seconds"`
}

// uploadVideo accepts a multipart file, a form video_url or a JSON body. File bytes are
// kept only when the source was not registered before.
func (h *Handler) uploadVideo(w http.ResponseWriter, r *http.Request) {
	var (
		source   domain.Source
		duration float64
		file     multipart.File
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data", "application/x-www-form-urlencoded":
		if mediaType == "multipart/form-data" {
			if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
				writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
				return
			}
			if f, hdr, err := r.FormFile("file"); err == nil {
				defer f.Close()
				file = f
				source = domain.Source{Type: domain.SourceUpload, Value: filepath.Base(hdr.Filename)}
			}
		} else if err := r.ParseForm(); err != nil {
			writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		if file == nil {
			source = domain.Source{Type: domain.SourceURL, Value: r.FormValue("video_url")}
		}
		if raw := r.FormValue("duration_seconds"); raw != "" {
			d, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				writeError(w, fmt.Errorf("%w: duration_seconds must be a number", errBadRequest))
				return
			}
			if math.IsNaN(d) || math.IsInf(d, 0) {
				writeError(w, fmt.Errorf("%w: duration_seconds must be finite", domain.ErrInvalidDuration))
				return
			}
			duration = d
		}
	default:
		var req uploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			writeError(w, fmt.Errorf("%w: invalid json body", errBadRequest))
			return
		}
		source = domain.Source{Type: domain.SourceURL, Value: req.VideoURL}
		if req.DurationSeconds != nil {
			duration = *req.DurationSeconds
		}
	}

	var staged string
	if file != nil {
		path, err := h.stageUpload(file)
		if err != nil {
			h.logger.Error("failed to stage upload", "error", err)
			writeError(w, err)
			return
		}
		staged = path
	}

	summary, created, err := h.service.RegisterVideo(r.Context(), source, duration)
	if err == nil && created && staged != "" {
		dest := filepath.Join(h.uploadDir, summary.ID+"_"+source.Value)
		if err = os.Rename(staged, dest); err != nil {
			h.logger.Error("failed to store upload", "video_id", summary.ID, "error", err)
		} else {
			staged = ""
		}
	}
	if staged != "" {
		_ = os.Remove(staged)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) stageUpload(file multipart.File) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(h.uploadDir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer tmp.Close()
	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func (h *Handler) getVideo(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Video(r.Context(), chi.URLParam(r, "videoID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) listSegments(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListSegments(r.Context(), chi.URLParam(r, "videoID"), r.Header.Get(ClientIDHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.service.Progress(r.Context(), chi.URLParam(r, "videoID"), r.Header.Get(ClientIDHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.GetQuiz(r.Context(), chi.URLParam(r, "segmentID"), r.Header.Get(ClientIDHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

type answerItem struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type answerSubmission struct {
	ClientID string       `json:"client_id"`
	Answers  []answerItem `json:"answers"`
}

func (s answerSubmission) answerMap() map[string]string {
	answers := make(map[string]string, len(s.Answers))
	for _, item := range s.Answers {
		answers[item.QuestionID] = item.Answer
	}
	return answers
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerSubmission
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid json body", errBadRequest))
		return
	}
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		clientID = r.Header.Get(ClientIDHeader)
	}
	result, err := h.service.SubmitAnswer(r.Context(), chi.URLParam(r, "segmentID"), clientID, req.answerMap())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
