package handler

import (
	"net/http"
	"time"

	sharedMiddleware "storyteller-server/shared/middleware"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Токен уже проверен JWT middleware, origin не ограничиваем
	CheckOrigin: func(r *http.Request) bool { return true },
}

// watchSession стримит снапшоты лога сообщений по WebSocket. Каждое изменение
// лога приходит полным срезом сообщений; клиент перерисовывает ленту целиком.
func (h *StoryHandler) watchSession(c echo.Context) error {
	parentUID, err := sharedMiddleware.ParentUIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}
	sessionID := c.Param("id")
	log := h.logger.With(zap.String("sessionID", sessionID))

	ctx := c.Request().Context()
	snapshots, err := h.service.WatchMessages(ctx, parentUID, sessionID)
	if err != nil {
		if !isExpectedError(err) {
			log.Error("Error opening message watch", zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", zap.Error(err))
		return err
	}
	defer conn.Close()

	// Подписка на фид тоже запускает наблюдение автокомпиляции: клиент мог
	// переподключиться уже после выбора концовки
	h.watcher.Supervise(sessionID)

	// Read pump только для обработки close-фреймов
	go func() {
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case messages, ok := <-snapshots:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
				return nil
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if writeErr := conn.WriteJSON(messages); writeErr != nil {
				log.Debug("WebSocket write failed, client gone", zap.Error(writeErr))
				return nil
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if pingErr := conn.WriteMessage(websocket.PingMessage, nil); pingErr != nil {
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}
