package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lychee/internal/model"
	"lychee/internal/pkg/ctxutil"
	"lychee/internal/service"
)

// ConversationHandler 会话管理处理器
type ConversationHandler struct {
	convSvc *service.ConversationService
}

// NewConversationHandler 创建会话管理处理器
func NewConversationHandler(convSvc *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convSvc: convSvc}
}

// List 获取当前用户的会话列表
func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		h.writeUnauthorized(c)
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	offset, _ := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	convs, err := h.convSvc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    50001,
			Message: "Failed to list conversations",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": convs,
		"total":         len(convs),
	})
}

// Get 获取会话详情及消息
func (h *ConversationHandler) Get(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		h.writeUnauthorized(c)
		return
	}

	detail, err := h.convSvc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err, "Failed to get conversation")
		return
	}

	c.JSON(http.StatusOK, detail)
}

// Delete 删除会话及其消息
func (h *ConversationHandler) Delete(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		h.writeUnauthorized(c)
		return
	}

	if err := h.convSvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeError(c, err, "Failed to delete conversation")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *ConversationHandler) writeUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, model.ErrorResponse{
		Code:    40101,
		Message: "Unauthorized",
	})
}

func (h *ConversationHandler) writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Code:    40401,
			Message: "Conversation not found",
		})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{
			Code:    40103,
			Message: "Unauthorized",
		})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    50001,
			Message: message,
			Detail:  err.Error(),
		})
	}
}
