package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zombor/receipt-ledger/internal/analytics"
)

const liveWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS is open for the whole API; the owner check already ran
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleLiveStats pushes a fresh aggregation view over a websocket after every
// change to the owner's receipts. The subscription ends with the connection.
func (s *Server) handleLiveStats(w http.ResponseWriter, r *http.Request) {
	q, err := queryFrom(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	// The client sends nothing; reading only detects the close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = analytics.Watch(ctx, s.service.Feed(), q, s.now, func(v analytics.View) error {
		if err := conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout)); err != nil {
			return err
		}
		return conn.WriteJSON(v)
	}, s.aggregateOptions()...)

	switch {
	case err == nil, errors.Is(err, context.Canceled), websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		slog.Info("Live stats closed", "owner_id", q.OwnerID)
	default:
		slog.Warn("Live stats ended", "owner_id", q.OwnerID, "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "stream failed"),
			time.Now().Add(time.Second))
	}
}
