package handler

import (
	"context"
	"net/http"

	"sentinal-social/internal/services"
	"sentinal-social/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ConversationHandler struct {
	service   *services.ConversationService
	messages  *services.MessageService
	presenter *services.Presenter
}

func NewConversationHandler(service *services.ConversationService, messages *services.MessageService, presenter *services.Presenter) *ConversationHandler {
	return &ConversationHandler{service: service, messages: messages, presenter: presenter}
}

func (h *ConversationHandler) CreateDirect(c *gin.Context) {
	var req httpdto.CreateDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	otherID, err := uuid.Parse(req.UserID)
	if err != nil {
		invalidRequest(c, "invalid user id")
		return
	}

	conv, err := h.service.FindOrCreateDirect(c.Request.Context(), userID, otherID)
	if err != nil {
		fail(c, err)
		return
	}
	view := h.presenter.Conversation(c.Request.Context(), userID, conv)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversationView(view)))
}

func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	var req httpdto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	creatorID, ok := currentUser(c)
	if !ok {
		return
	}

	participantIDs := make([]uuid.UUID, 0, len(req.Participants))
	for _, idStr := range req.Participants {
		id, err := uuid.Parse(idStr)
		if err != nil {
			invalidRequest(c, "invalid participant id")
			return
		}
		participantIDs = append(participantIDs, id)
	}

	conv, err := h.service.CreateGroup(c.Request.Context(), creatorID, participantIDs, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	view := h.presenter.Conversation(c.Request.Context(), creatorID, conv)
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromConversationView(view)))
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	convs, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	views := h.presenter.Conversations(c.Request.Context(), userID, convs)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListConversationsResponse{
		Conversations: httpdto.FromConversationViews(views),
	}))
}

func (h *ConversationHandler) GetByID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	conv, err := h.service.Get(c.Request.Context(), id, userID)
	if err != nil {
		fail(c, err)
		return
	}
	view := h.presenter.Conversation(c.Request.Context(), userID, conv)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversationView(view)))
}

func (h *ConversationHandler) Update(c *gin.Context) {
	var req httpdto.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	conv, err := h.service.UpdateGroupInfo(c.Request.Context(), id, userID, req.Name, req.AvatarRef)
	if err != nil {
		fail(c, err)
		return
	}
	view := h.presenter.Conversation(c.Request.Context(), userID, conv)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversationView(view)))
}

func (h *ConversationHandler) AddMember(c *gin.Context) {
	var req httpdto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	actorID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	memberID, err := uuid.Parse(req.UserID)
	if err != nil {
		invalidRequest(c, "invalid user id")
		return
	}

	conv, err := h.service.AddMember(c.Request.Context(), id, actorID, memberID)
	if err != nil {
		fail(c, err)
		return
	}
	view := h.presenter.Conversation(c.Request.Context(), actorID, conv)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversationView(view)))
}

func (h *ConversationHandler) RemoveMember(c *gin.Context) {
	h.memberAction(c, h.service.RemoveMember)
}

func (h *ConversationHandler) Promote(c *gin.Context) {
	h.memberAction(c, h.service.Promote)
}

func (h *ConversationHandler) Demote(c *gin.Context) {
	h.memberAction(c, h.service.Demote)
}

func (h *ConversationHandler) memberAction(c *gin.Context, action func(ctx context.Context, conversationID, actorID, userID uuid.UUID) error) {
	actorID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	memberID, ok := pathUUID(c, "user_id")
	if !ok {
		return
	}

	if err := action(c.Request.Context(), id, actorID, memberID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ConversationHandler) Leave(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.LeaveGroup(c.Request.Context(), id, userID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete hides the conversation for the caller only.
func (h *ConversationHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.messages.SoftDeleteConversation(c.Request.Context(), id, userID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
