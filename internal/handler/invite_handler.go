package handler

import (
	"net/http"

	"sentinal-social/internal/services"
	"sentinal-social/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type InviteHandler struct {
	service   *services.InviteService
	presenter *services.Presenter
}

func NewInviteHandler(service *services.InviteService, presenter *services.Presenter) *InviteHandler {
	return &InviteHandler{service: service, presenter: presenter}
}

// Create issues a new link for the group, revoking the previous one.
func (h *InviteHandler) Create(c *gin.Context) {
	var req httpdto.CreateInviteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c, "invalid request")
			return
		}
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	link, err := h.service.CreateOrRotate(c.Request.Context(), conversationID, userID, req.MaxUses, req.ExpiresAt)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromInvite(link)))
}

func (h *InviteHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	link, err := h.service.GetActive(c.Request.Context(), conversationID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	if link == nil {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("no invite link", "NOT_FOUND"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromInvite(*link)))
}

func (h *InviteHandler) SetActive(c *gin.Context) {
	var req httpdto.SetInviteActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	link, err := h.service.SetActive(c.Request.Context(), conversationID, userID, *req.Active)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromInvite(link)))
}

func (h *InviteHandler) Join(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	token := c.Param("token")
	if token == "" {
		invalidRequest(c, "invalid token")
		return
	}

	conv, err := h.service.JoinByToken(c.Request.Context(), token, userID)
	if err != nil {
		fail(c, err)
		return
	}
	view := h.presenter.Conversation(c.Request.Context(), userID, conv)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversationView(view)))
}
