package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"lychee/internal/model"
	"lychee/internal/pkg/ctxutil"
	"lychee/internal/service"
)

// ChatHandler 对话处理器
type ChatHandler struct {
	turnSvc *service.TurnService
}

// NewChatHandler 创建对话处理器
func NewChatHandler(turnSvc *service.TurnService) *ChatHandler {
	return &ChatHandler{turnSvc: turnSvc}
}

// Chat 对话接口 (SSE)
// 同步阶段的错误以 HTTP 状态码返回; 流开始后错误折叠为 error 事件
func (h *ChatHandler) Chat(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{
			Code:    40101,
			Message: "Unauthorized",
		})
		return
	}

	var req model.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	stream, err := h.turnSvc.HandleTurn(c.Request.Context(), userID, &req)
	if err != nil {
		h.writeTurnError(c, err)
		return
	}
	// 调用方断开后生成在内部继续跑完
	defer stream.Close()

	// 设置 SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-stream.Events()
		if !ok {
			return false
		}
		c.SSEvent(ev.Type, ev)
		return true
	})
}

// writeTurnError 同步阶段错误映射
func (h *ChatHandler) writeTurnError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoUserMessage):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40003,
			Message: "No user message found",
		})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{
			Code:    40103,
			Message: "Unauthorized",
		})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    50001,
			Message: "Failed to process chat request",
			Detail:  err.Error(),
		})
	}
}
