package handlers

import (
	"context"
	"net/http"
	"time"

	"soothe/models"
	"soothe/services/notification"
	"soothe/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventSource streams the published notices of one booking.
type EventSource interface {
	Subscribe(ctx context.Context, bookingID string, logger *zap.Logger) (*notification.Subscription, error)
}

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS layer and the bearer token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamEvents handles GET /api/bookings/:id/events. It sends the current
// state, then every later change, and closes once the request is final.
func (h *BookingHandler) StreamEvents(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id := c.Param("id")
	ctx := c.Request.Context()
	if _, err := h.BookingSvc.Get(ctx, p, id); err != nil {
		respondError(c, err)
		return
	}
	if h.Events == nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "Live updates unavailable", "no event source configured")
		return
	}

	sub, err := h.Events.Subscribe(ctx, id, h.Logger)
	if err != nil {
		h.Logger.Error("StreamEvents: subscribe failed", zap.String("booking_id", id), zap.Error(err))
		utils.JSONError(c, http.StatusServiceUnavailable, "Live updates unavailable", err.Error())
		return
	}
	defer sub.Close()

	// Read after subscribing so no change falls between snapshot and stream.
	current, err := h.BookingSvc.Get(ctx, p, id)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("StreamEvents: upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	write := func(notice models.BookingNotice) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(notice) == nil
	}
	finish := func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "booking settled"),
			time.Now().Add(wsWriteWait))
	}

	if !write(models.NoticeFor(current, current.UpdatedAt)) {
		return
	}
	if current.Status.IsTerminal() {
		finish()
		return
	}

	// The client only ever sends control frames; reading surfaces its close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case notice, ok := <-sub.C:
			if !ok {
				return
			}
			if !write(notice) {
				return
			}
			if notice.Status.IsTerminal() {
				finish()
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
