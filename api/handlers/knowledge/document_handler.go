package knowledge

import (
	"errors"
	"net/http"

	response "backend/api/handlers/common"
	"backend/internal/rag"
	"backend/internal/tenant"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 知识文档处理器
type DocumentHandler struct {
	documents *rag.DocumentService
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(documents *rag.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// UploadRequest 文本文档上传请求
type UploadRequest struct {
	FileName string   `json:"file_name" binding:"required,min=1"`
	FileType string   `json:"file_type"`
	Content  string   `json:"content" binding:"required,min=1"`
	Tags     []string `json:"tags"`
}

// Upload 上传文本文档, 处理异步执行
func (h *DocumentHandler) Upload(c *gin.Context) {
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return
	}

	tc := tenant.MustTenantContext(c.Request.Context())

	fileType := req.FileType
	if fileType == "" {
		fileType = "text/plain"
	}

	doc, err := h.documents.UploadDocument(c.Request.Context(), &rag.UploadDocumentRequest{
		TenantID: tc.TenantID,
		FileName: req.FileName,
		FileType: fileType,
		Content:  req.Content,
		Tags:     req.Tags,
	})
	if err != nil {
		writeDocumentError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, response.APIResponse{Success: true, Data: doc})
}

// List 列出租户文档
func (h *DocumentHandler) List(c *gin.Context) {
	tc := tenant.MustTenantContext(c.Request.Context())

	docs, err := h.documents.ListDocuments(c.Request.Context(), tc.TenantID)
	if err != nil {
		writeDocumentError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: docs})
}

// UpdateTagsRequest 标签更新请求
type UpdateTagsRequest struct {
	Tags []string `json:"tags"`
}

// UpdateTags 更新文档标签
func (h *DocumentHandler) UpdateTags(c *gin.Context) {
	docID := c.Param("id")
	if docID == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "缺少文档 ID"})
		return
	}

	var req UpdateTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "参数错误: " + err.Error()})
		return
	}

	tc := tenant.MustTenantContext(c.Request.Context())

	if err := h.documents.UpdateTags(c.Request.Context(), docID, tc.TenantID, req.Tags); err != nil {
		writeDocumentError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "标签已更新"})
}

// Delete 删除文档及其分块
func (h *DocumentHandler) Delete(c *gin.Context) {
	docID := c.Param("id")
	if docID == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "缺少文档 ID"})
		return
	}

	tc := tenant.MustTenantContext(c.Request.Context())

	if err := h.documents.DeleteDocument(c.Request.Context(), docID, tc.TenantID); err != nil {
		writeDocumentError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "文档已删除"})
}

// writeDocumentError 把服务错误映射为 HTTP 状态码
func writeDocumentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rag.ErrInvalidInput), errors.Is(err, rag.ErrMissingTenant):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: err.Error()})
	case errors.Is(err, rag.ErrNotFound):
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "操作失败"})
	}
}
