package handler

import (
	"net/http"

	"sentinal-social/internal/services"
	"sentinal-social/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	service   *services.RequestService
	presenter *services.Presenter
}

func NewRequestHandler(service *services.RequestService, presenter *services.Presenter) *RequestHandler {
	return &RequestHandler{service: service, presenter: presenter}
}

func (h *RequestHandler) ListIncoming(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	reqs, err := h.service.ListIncoming(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListRequestsResponse{
		Requests: httpdto.FromRequestViews(h.presenter.Requests(c.Request.Context(), reqs)),
	}))
}

func (h *RequestHandler) ListOutgoing(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	reqs, err := h.service.ListOutgoing(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListRequestsResponse{
		Requests: httpdto.FromRequestViews(h.presenter.Requests(c.Request.Context(), reqs)),
	}))
}

func (h *RequestHandler) Messages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	msgs, err := h.service.PreviewMessages(c.Request.Context(), requestID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromMessageViews(h.presenter.Messages(c.Request.Context(), msgs))))
}

func (h *RequestHandler) Accept(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	req, conv, err := h.service.Accept(ctx, requestID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	out := httpdto.AcceptRequestResponse{Request: httpdto.FromRequestView(h.presenter.Request(ctx, req))}
	if conv != nil {
		dto := httpdto.FromConversationView(h.presenter.Conversation(ctx, userID, *conv))
		out.Conversation = &dto
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(out))
}

func (h *RequestHandler) Reject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	req, err := h.service.Reject(c.Request.Context(), requestID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromRequestView(h.presenter.Request(c.Request.Context(), req))))
}

func (h *RequestHandler) Ignore(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	req, err := h.service.Ignore(c.Request.Context(), requestID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromRequestView(h.presenter.Request(c.Request.Context(), req))))
}
