package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bembido/video-to-quiz/internal/app"
	"github.com/gorilla/websocket"
)

// WSHandler keeps a client's segment list in sync across tabs and accepts answers.
type WSHandler struct {
	service  *app.GateService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GateService, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsAnswerPayload struct {
	SegmentID string       `json:"segmentId"`
	Answers   []answerItem `json:"answers"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func wsError(err error) outboundMessage[any] {
	_, code := statusFor(err)
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: code, Message: err.Error()}}
}

// ServeWS upgrades the request and streams "segments" snapshots for (videoId, clientId).
// Inbound {"type":"answer"} messages are scored and answered with "answerResult".
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("videoId")
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = r.Header.Get(ClientIDHeader)
	}
	if videoID == "" || clientID == "" {
		http.Error(w, "missing videoId or clientId", http.StatusBadRequest)
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), videoID, clientID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	h.logger.Info("ws connected", "video_id", videoID, "client_id", clientID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("ws write error", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snapshot, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "segments", Payload: snapshot}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload wsAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "bad_request", Message: "invalid answer payload"}}
				continue
			}
			result, err := h.service.SubmitAnswer(r.Context(), payload.SegmentID, clientID, answerSubmission{Answers: payload.Answers}.answerMap())
			if err != nil {
				send <- wsError(err)
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: result}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: "bad_request", Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
	h.logger.Info("ws disconnected", "video_id", videoID, "client_id", clientID)
}
