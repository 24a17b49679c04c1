package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"contact_form/internal/middleware"
	"contact_form/internal/service"
	apperrors "contact_form/pkg/errors"
	"contact_form/pkg/logger"
)

const (
	relayWriteWait  = 10 * time.Second
	relayPongWait   = 60 * time.Second
	relayPingPeriod = relayPongWait * 9 / 10

	// RelayTokenQuery: браузер не может передать заголовок при upgrade
	RelayTokenQuery = "token"
)

// RelayHandler отдает сообщения RelayHub подписчикам по websocket.
// Канал односторонний: входящие сообщения клиента игнорируются.
type RelayHandler struct {
	hub           *service.RelayHub
	sessions      service.FormSessionService
	operatorToken string
	upgrader      websocket.Upgrader
	log           logger.Logger
}

func NewRelayHandler(hub *service.RelayHub, sessions service.FormSessionService, operatorToken string, checkOrigin func(r *http.Request) bool, log logger.Logger) *RelayHandler {
	return &RelayHandler{
		hub:           hub,
		sessions:      sessions,
		operatorToken: operatorToken,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		log: log,
	}
}

// relayScope: чьи сообщения получает подписчик
type relayScope struct {
	sessionID string
	all       bool
}

// authorize проверяет учетные данные до upgrade. Токен оператора дает все
// формы, токен формы только ее собственные сообщения.
func (h *RelayHandler) authorize(c *gin.Context) (relayScope, error) {
	if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		if h.operatorToken == "" || subtle.ConstantTimeCompare([]byte(bearer), []byte(h.operatorToken)) != 1 {
			return relayScope{}, apperrors.ErrUnauthorized
		}
		return relayScope{all: true}, nil
	}

	token := c.GetHeader(middleware.FormTokenHeader)
	if token == "" {
		token = c.Query(RelayTokenQuery)
	}
	if token == "" {
		return relayScope{}, apperrors.NewAPIError("Form token required", http.StatusUnauthorized)
	}

	coordinator, err := h.sessions.Resolve(c.Request.Context(), token)
	if err != nil {
		h.log.Debug("Relay token rejected", "error", err)
		return relayScope{}, apperrors.NewAPIError("Invalid form token", apperrors.HTTPStatusFromError(err))
	}
	return relayScope{sessionID: coordinator.Session().ID}, nil
}

func (h *RelayHandler) Subscribe(c *gin.Context) {
	scope, err := h.authorize(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	var sub *service.Subscription
	if scope.all {
		sub = h.hub.SubscribeAll()
	} else {
		sub = h.hub.SubscribeSession(scope.sessionID)
	}
	defer h.hub.Unsubscribe(sub)
	h.log.Debug("Relay subscriber connected",
		"session_id", scope.sessionID,
		"operator", scope.all,
		"subscribers", h.hub.Subscribers(),
	)

	closed := make(chan struct{})
	go h.readLoop(conn, closed)

	ping := time.NewTicker(relayPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case data, ok := <-sub.C():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(relayWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug("Relay write failed", "error", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(relayWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop нужен для обработки pong и close от клиента
func (h *RelayHandler) readLoop(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(relayPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(relayPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Relay subscriber closed unexpectedly", "error", err)
			}
			return
		}
	}
}
