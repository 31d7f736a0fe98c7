package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/pagescan/internal/utils"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// WebSocketRequest is a client message on /ws. Type is "rectify" or "detect".
type WebSocketRequest struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Image  string          `json:"image"`
	Points json.RawMessage `json:"points,omitempty"`
}

// WebSocketResponse is a server message on /ws. Status moves from
// "processing" to "completed" or "error".
type WebSocketResponse struct {
	Type      string  `json:"type"`
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"`
	Stage     string  `json:"stage,omitempty"`
	Result    any     `json:"result,omitempty"`
	Error     string  `json:"error,omitempty"`
	ErrorType string  `json:"error_type,omitempty"`
	RequestID string  `json:"request_id,omitempty"`
}

// WebSocketConnWriter is the write side of a WebSocket connection.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.corsOrigin == "" || s.corsOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.corsOrigin
}

// webSocketHandler upgrades the connection and serves rectify requests with
// progress updates.
func (s *Server) webSocketHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()
	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	// base64 inflates uploads by a third
	conn.SetReadLimit(s.maxUploadMB*1024*1024*4/3 + 4096)
	s.serveWebSocket(r.Context(), conn)
}

func (s *Server) serveWebSocket(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket closed unexpectedly", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		websocketMessagesTotal.WithLabelValues("received").Inc()
		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage processes one request, streaming progress to conn.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", badRequest(errTypeInvalidRequest, "failed to parse request: %v", err))
		return
	}
	requestID := req.ID
	if requestID == "" {
		requestID = strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	if req.Type != "rectify" && req.Type != "detect" {
		s.sendWebSocketError(conn, requestID, badRequest(errTypeInvalidRequest, "unsupported request type %q", req.Type))
		return
	}

	progress := func(p float64, stage string) {
		s.sendWebSocketResponse(conn, WebSocketResponse{
			Type: req.Type + "_response", Status: "processing", Progress: p, Stage: stage, RequestID: requestID,
		})
	}
	progress(0, "received")

	result, err := s.processWebSocketRequest(ctx, req, progress)
	if err != nil {
		pageRequestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketError(conn, requestID, err)
		return
	}
	pageRequestsTotal.WithLabelValues("websocket", "success").Inc()
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type: req.Type + "_response", Status: "completed", Progress: 1, Result: result, RequestID: requestID,
	})
}

func (s *Server) processWebSocketRequest(ctx context.Context, req WebSocketRequest, progress func(float64, string)) (any, error) {
	img, err := decodeBase64Image(req.Image)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateImageConstraints(img, utils.DefaultImageConstraints()); err != nil {
		return nil, badRequest(errTypeInvalidImage, "%v", err)
	}
	corners, err := parsePointsJSON(req.Points)
	if err != nil {
		return nil, badRequest(errTypeInvalidPoints, "invalid points: %v", err)
	}
	progress(0.25, "decoded")

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if req.Type == "detect" || corners == nil {
		det, err := s.detect(ctx, img)
		if err != nil {
			return nil, err
		}
		if req.Type == "detect" {
			return det, nil
		}
		if !det.Success {
			return nil, &apiError{Status: http.StatusOK, Type: errTypeNoQuadrilateral, Msg: "no quadrilateral found"}
		}
		q, err := det.Quads[0].Quad()
		if err != nil {
			return nil, err
		}
		corners = &q
		progress(0.5, "detected")
	}

	res, err := s.pipeline.ProcessImageWithCorners(ctx, img, *corners)
	if err != nil {
		return nil, err
	}
	recordPage(res)
	progress(0.9, "rectified")
	return newRectifyResponse(res)
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID string, err error) {
	ae := classify(err)
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "error",
		Status:    "error",
		Error:     ae.Msg,
		ErrorType: ae.Type,
		RequestID: requestID,
	})
}
