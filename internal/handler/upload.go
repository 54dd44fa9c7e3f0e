package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"lychee/internal/model"
	"lychee/internal/pkg/ctxutil"
	"lychee/internal/pkg/id"
	"lychee/internal/pkg/storage"
)

// 上传约束: 图片最大 5MB，PDF 最大 32MB
const (
	maxImageSize = 5 * 1024 * 1024
	maxPDFSize   = 32 * 1024 * 1024
)

// allowedImageTypes 允许上传的图片类型
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// UploadHandler 文件上传处理器
type UploadHandler struct {
	store storage.Storage
}

// NewUploadHandler 创建文件上传处理器
func NewUploadHandler(store storage.Storage) *UploadHandler {
	return &UploadHandler{store: store}
}

// UploadResponse 上传响应
type UploadResponse struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

// Upload 上传附件 (multipart/form-data)
// 校验失败时一次性返回全部违规项
func (h *UploadHandler) Upload(c *gin.Context) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{
			Code:    40101,
			Message: "Unauthorized",
		})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40001,
			Message: "No file uploaded",
			Detail:  err.Error(),
		})
		return
	}

	contentType := file.Header.Get("Content-Type")
	if violations := validateUpload(file.Size, contentType); len(violations) > 0 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40005,
			Message: strings.Join(violations, ", "),
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40003,
			Message: "Failed to open file",
			Detail:  err.Error(),
		})
		return
	}
	defer src.Close()

	// 以随机前缀隔离同名文件
	key := fmt.Sprintf("uploads/%s/%s%s", userID, id.New(), strings.ToLower(filepath.Ext(file.Filename)))

	url, err := h.store.Upload(c.Request.Context(), key, src, contentType)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to upload file")
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    50002,
			Message: "Upload failed",
		})
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		URL:         url,
		Name:        file.Filename,
		ContentType: contentType,
	})
}

// validateUpload 按文件类型校验大小，返回全部违规项
func validateUpload(size int64, contentType string) []string {
	var violations []string

	switch {
	case allowedImageTypes[contentType]:
		if size > maxImageSize {
			violations = append(violations, "File size should be less than 5MB")
		}
	case contentType == "application/pdf":
		if size > maxPDFSize {
			violations = append(violations, "File size should be less than 32MB")
		}
	default:
		violations = append(violations, "File type should be JPEG, PNG or PDF")
		if size > maxPDFSize {
			violations = append(violations, "File size should be less than 32MB")
		}
	}

	return violations
}
