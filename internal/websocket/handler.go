package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"sentinal-social/internal/services"
	"sentinal-social/internal/transport/httpdto"
	"sentinal-social/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const maxFrameSize = 4096

// Inbound frame types
const (
	FrameTyping = "typing"
	FrameRead   = "read"
)

// InboundFrame is a client to server websocket message.
type InboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	Typing         bool   `json:"typing,omitempty"`
}

type Handler struct {
	auth          *services.AuthService
	conversations *services.ConversationService
	messages      *services.MessageService
	hub           *Hub
	sendBuffer    int
	log           *connLogger
	upgrader      websocket.Upgrader
}

func NewHandler(auth *services.AuthService, conversations *services.ConversationService, messages *services.MessageService, hub *Hub, sendBuffer int, l *logger.Logger) *Handler {
	return &Handler{
		auth:          auth,
		conversations: conversations,
		messages:      messages,
		hub:           hub,
		sendBuffer:    sendBuffer,
		log:           newConnLogger(l),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Connect upgrades an authenticated request. Browsers cannot set headers on
// the upgrade, so the access token travels in the token query parameter.
func (h *Handler) Connect(c *gin.Context) {
	userID, err := h.auth.Authenticate(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, userID, h.sendBuffer)
	ctx, cancel := context.WithCancel(services.WithUserContext(context.Background(), userID))
	defer cancel()

	h.hub.Register(client)
	h.log.Info("connected", userID, client.ID)
	go client.WriteLoop(ctx)

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		h.handleFrame(ctx, client, data)
	}

	h.hub.Unregister(client)
	h.log.Info("disconnected", userID, client.ID)
}

func (h *Handler) handleFrame(ctx context.Context, client *Client, data []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.log.Warn("bad_frame", client.UserID, client.ID, err)
		return
	}

	switch frame.Type {
	case FrameTyping:
		conversationID, err := uuid.Parse(frame.ConversationID)
		if err != nil {
			h.log.Warn("bad_frame", client.UserID, client.ID, err)
			return
		}
		if err := h.conversations.Typing(ctx, conversationID, client.UserID, frame.Typing); err != nil {
			h.log.Warn("typing_rejected", client.UserID, client.ID, err)
		}
	case FrameRead:
		messageID, err := uuid.Parse(frame.MessageID)
		if err != nil {
			h.log.Warn("bad_frame", client.UserID, client.ID, err)
			return
		}
		if _, err := h.messages.MarkRead(ctx, messageID, client.UserID); err != nil {
			h.log.Warn("read_rejected", client.UserID, client.ID, err)
		}
	}
}
