package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Denis-Evseev/google-daily-trends/internal/stitch"
	"github.com/Denis-Evseev/google-daily-trends/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	streamBuffer = 64
)

// StreamMessage is one websocket frame of a streamed run
type StreamMessage struct {
	Type   string         `json:"type"` // event, result, error
	Event  *stitch.Event  `json:"event,omitempty"`
	Result *stitch.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
	Kind   string         `json:"kind,omitempty"`
}

// StreamHandler runs a stitch and pushes its events over a websocket
type StreamHandler struct {
	stitcher *stitch.Stitcher
	defaults stitch.Params
	upgrader websocket.Upgrader
	logger   *logger.Logger
	now      func() time.Time
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(st *stitch.Stitcher, defaults stitch.Params, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		stitcher: st,
		defaults: defaults,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: log.WithComponent("stream"),
		now:    time.Now,
	}
}

// Stitch upgrades the connection and streams one run: every Event, then a
// final result or error frame, then a normal close. Closing the socket
// cancels the run.
// GET /ws/stitch?keyword=&start=&end=&...
func (h *StreamHandler) Stitch(w http.ResponseWriter, r *http.Request) {
	req, err := parseStitchRequest(r, h.defaults, h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// reader only watches for the client going away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	msgs := make(chan StreamMessage, streamBuffer)
	go func() {
		defer close(msgs)
		send := func(m StreamMessage) {
			select {
			case msgs <- m:
			case <-ctx.Done():
			}
		}

		st := h.stitcher.Tee(stitch.ObserverFunc(func(e stitch.Event) {
			send(StreamMessage{Type: "event", Event: &e})
		}))
		res, err := st.Run(ctx, req.Mode, req.Keyword, req.Start, req.End, req.Params)
		if err != nil {
			m := StreamMessage{Type: "error", Error: err.Error()}
			if kind, ok := stitch.KindOf(err); ok {
				m.Kind = kind.String()
			}
			send(m)
			return
		}
		send(StreamMessage{Type: "result", Result: res})
	}()

	broken := false
	for m := range msgs {
		if broken {
			continue // drain so the run goroutine can finish
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(m); err != nil {
			h.logger.WithKeyword(req.Keyword).WithError(err).Warn("Websocket write failed, cancelling run")
			broken = true
			cancel()
		}
	}

	if !broken {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
			time.Now().Add(writeWait))
	}
}
