package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HUI135/gc-endoscopy-room-sub001/internal/dto"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/service"
	"github.com/HUI135/gc-endoscopy-room-sub001/pkg/response"
)

// InputHandler 排班输入维护 HTTP 处理器
type InputHandler struct {
	inputSvc service.InputService
}

// NewInputHandler 创建 InputHandler
func NewInputHandler(inputSvc service.InputService) *InputHandler {
	return &InputHandler{inputSvc: inputSvc}
}

// ── 固定排班表 ──

// ReplaceMaster 整表替换固定排班
// PUT /api/v1/master
func (h *InputHandler) ReplaceMaster(c *gin.Context) {
	var req dto.ReplaceMasterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.inputSvc.ReplaceMaster(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleInputError(c, err)
		return
	}
	response.OK(c, resp)
}

// ListMaster 固定排班表
// GET /api/v1/master
func (h *InputHandler) ListMaster(c *gin.Context) {
	entries, err := h.inputSvc.ListMaster(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": entries})
}

// ── 个人请求 ──

// CreateRequests 批量录入个人请求
// POST /api/v1/requests
func (h *InputHandler) CreateRequests(c *gin.Context) {
	var req dto.CreateRequestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.inputSvc.CreateRequests(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleInputError(c, err)
		return
	}
	response.Created(c, resp)
}

// ListRequests 月度个人请求
// GET /api/v1/requests?month=YYYY-MM
func (h *InputHandler) ListRequests(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "month 格式应为 YYYY-MM")
		return
	}
	rows, err := h.inputSvc.ListRequests(c.Request.Context(), q.Month)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": rows})
}

// DeleteRequest 删除个人请求
// DELETE /api/v1/requests/:id
func (h *InputHandler) DeleteRequest(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "请求ID不能为空")
		return
	}
	if err := h.inputSvc.DeleteRequest(c.Request.Context(), id); err != nil {
		h.handleInputError(c, err)
		return
	}
	response.OK(c, nil)
}

// ── 房间请求 ──

// CreateRoomRequests 批量录入房间请求
// POST /api/v1/room-requests
func (h *InputHandler) CreateRoomRequests(c *gin.Context) {
	var req dto.CreateRoomRequestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.inputSvc.CreateRoomRequests(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleInputError(c, err)
		return
	}
	response.Created(c, resp)
}

// ListRoomRequests 月度房间请求
// GET /api/v1/room-requests?month=YYYY-MM
func (h *InputHandler) ListRoomRequests(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "month 格式应为 YYYY-MM")
		return
	}
	rows, err := h.inputSvc.ListRoomRequests(c.Request.Context(), q.Month)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": rows})
}

// ── 周六名单 ──

// PutSaturday 设置周六名单
// PUT /api/v1/saturdays/:date
func (h *InputHandler) PutSaturday(c *gin.Context) {
	var req dto.PutSaturdayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败（最多 10 人）")
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	o, err := h.inputSvc.PutSaturday(c.Request.Context(), c.Param("date"), &req, callerID)
	if err != nil {
		h.handleInputError(c, err)
		return
	}
	response.OK(c, o)
}

// ListSaturdays 月度周六名单
// GET /api/v1/saturdays?month=YYYY-MM
func (h *InputHandler) ListSaturdays(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "month 格式应为 YYYY-MM")
		return
	}
	rows, err := h.inputSvc.ListSaturdays(c.Request.Context(), q.Month)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": rows})
}

// ── 休馆日 ──

// CreateHolidays 手工录入休馆日
// POST /api/v1/holidays
func (h *InputHandler) CreateHolidays(c *gin.Context) {
	var req dto.CreateHolidaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.inputSvc.CreateHolidays(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleInputError(c, err)
		return
	}
	response.Created(c, resp)
}

// ListHolidays 月度休馆日
// GET /api/v1/holidays?month=YYYY-MM
func (h *InputHandler) ListHolidays(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "month 格式应为 YYYY-MM")
		return
	}
	rows, err := h.inputSvc.ListHolidays(c.Request.Context(), q.Month)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": rows})
}

// ImportHolidays 导入 ICS 休馆日
// POST /api/v1/holidays/import
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"
//   - URL 导入: application/json, body={"url": "..."}
func (h *InputHandler) ImportHolidays(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		resp, err := h.inputSvc.ImportHolidays(c.Request.Context(), file, callerID)
		if err != nil {
			h.handleInputError(c, err)
			return
		}
		response.Created(c, resp)
		return
	}

	var req dto.ImportHolidaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 21005, "请上传 ICS 文件或提供 ICS URL")
		return
	}
	body, err := service.FetchICSContent(req.URL)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 21006, "ICS URL 获取失败", err.Error())
		return
	}
	defer body.Close()

	resp, err := h.inputSvc.ImportHolidays(c.Request.Context(), body, callerID)
	if err != nil {
		h.handleInputError(c, err)
		return
	}
	response.Created(c, resp)
}

// handleInputError 统一处理输入模块业务错误
func (h *InputHandler) handleInputError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidMasterEntry):
		response.ErrorWithDetails(c, http.StatusBadRequest, 21001, "固定排班行无效", err.Error())
	case errors.Is(err, service.ErrRequestNotFound):
		response.NotFound(c, 21002, "请求不存在")
	case errors.Is(err, service.ErrNotSaturday):
		response.BadRequest(c, 21003, "日期不是周六")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 21004, "日期格式无效")
	case errors.Is(err, service.ErrInvalidICS):
		response.ErrorWithDetails(c, http.StatusBadRequest, 21007, "ICS 文件解析失败", err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/input_handler.go
