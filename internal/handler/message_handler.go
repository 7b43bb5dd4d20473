package handler

import (
	"net/http"

	"sentinal-social/internal/domain/message"
	"sentinal-social/internal/services"
	"sentinal-social/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	service   *services.MessageService
	requests  *services.RequestService
	presenter *services.Presenter
}

func NewMessageHandler(service *services.MessageService, requests *services.RequestService, presenter *services.Presenter) *MessageHandler {
	return &MessageHandler{service: service, requests: requests, presenter: presenter}
}

func contentType(raw string) message.ContentType {
	if raw == "" {
		return message.ContentText
	}
	return message.ContentType(raw)
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	senderID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	m, err := h.service.Send(c.Request.Context(), conversationID, senderID, contentType(req.Type), req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromMessageView(h.presenter.Message(c.Request.Context(), m))))
}

func (h *MessageHandler) Reply(c *gin.Context) {
	var req httpdto.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	senderID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	replyToID, err := uuid.Parse(req.ReplyToID)
	if err != nil {
		invalidRequest(c, "invalid reply_to_id")
		return
	}

	m, err := h.service.Reply(c.Request.Context(), conversationID, senderID, replyToID, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromMessageView(h.presenter.Message(c.Request.Context(), m))))
}

// SendDirect messages a user by id. Unconnected users get a message request
// instead of a conversation.
func (h *MessageHandler) SendDirect(c *gin.Context) {
	var req httpdto.SendDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	senderID, ok := currentUser(c)
	if !ok {
		return
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		invalidRequest(c, "invalid receiver_id")
		return
	}

	ctx := c.Request.Context()
	res, err := h.requests.SendMessage(ctx, senderID, receiverID, contentType(req.Type), req.Content)
	if err != nil {
		fail(c, err)
		return
	}

	out := httpdto.SendDirectResponse{
		Message: httpdto.FromMessageView(h.presenter.Message(ctx, res.Message)),
	}
	if res.Conversation != nil {
		dto := httpdto.FromConversationView(h.presenter.Conversation(ctx, senderID, *res.Conversation))
		out.Conversation = &dto
	}
	if res.Request != nil {
		dto := httpdto.FromRequestView(h.presenter.Request(ctx, *res.Request))
		out.Request = &dto
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(out))
}

func (h *MessageHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	page, limit := queryInt(c, "page"), queryInt(c, "limit")
	items, total, err := h.service.List(c.Request.Context(), conversationID, userID, page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	page, limit = services.NormalizePage(page, limit)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListMessagesResponse{
		Messages: httpdto.FromMessageViews(h.presenter.Messages(c.Request.Context(), items)),
		Total:    total,
		Page:     page,
		Limit:    limit,
	}))
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	readerID, ok := currentUser(c)
	if !ok {
		return
	}
	messageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	marked, err := h.service.MarkRead(c.Request.Context(), messageID, readerID)
	if err != nil {
		fail(c, err)
		return
	}
	ids := make([]string, 0, len(marked))
	for _, id := range marked {
		ids = append(ids, id.String())
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MarkReadResponse{MessageIDs: ids}))
}

func (h *MessageHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	messageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.SoftDelete(c.Request.Context(), messageID, userID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
