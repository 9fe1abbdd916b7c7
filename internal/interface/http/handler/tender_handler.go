package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
	"github.com/ignatzorin/tender-portal/internal/interface/http/dto"
	"github.com/ignatzorin/tender-portal/internal/interface/http/response"
	"github.com/ignatzorin/tender-portal/internal/usecase/tender"
)

const defaultTenderPageSize = 50

type TenderHandler struct {
	createUC   *tender.CreateTenderUseCase
	getUC      *tender.GetTenderUseCase
	listUC     *tender.ListTendersUseCase
	statsUC    *tender.TenderStatsUseCase
	publishUC  *tender.PublishTenderUseCase
	evaluateUC *tender.StartEvaluationUseCase
	awardUC    *tender.AwardTenderUseCase
	rejectUC   *tender.RejectTenderUseCase
	closeUC    *tender.CloseTenderUseCase
	deleteUC   *tender.DeleteTenderUseCase
}

func NewTenderHandler(
	createUC *tender.CreateTenderUseCase,
	getUC *tender.GetTenderUseCase,
	listUC *tender.ListTendersUseCase,
	statsUC *tender.TenderStatsUseCase,
	publishUC *tender.PublishTenderUseCase,
	evaluateUC *tender.StartEvaluationUseCase,
	awardUC *tender.AwardTenderUseCase,
	rejectUC *tender.RejectTenderUseCase,
	closeUC *tender.CloseTenderUseCase,
	deleteUC *tender.DeleteTenderUseCase,
) *TenderHandler {
	return &TenderHandler{
		createUC:   createUC,
		getUC:      getUC,
		listUC:     listUC,
		statsUC:    statsUC,
		publishUC:  publishUC,
		evaluateUC: evaluateUC,
		awardUC:    awardUC,
		rejectUC:   rejectUC,
		closeUC:    closeUC,
		deleteUC:   deleteUC,
	}
}

func (h *TenderHandler) CreateTender(c *gin.Context) {
	var req dto.CreateTenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	closingDate, err := dto.ParseClosingDate(req.ClosingDate)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	t, err := h.createUC.Execute(c.Request.Context(), tender.CreateTenderInput{
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		Budget:      req.Budget,
		Currency:    req.Currency,
		ClosingDate: closingDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToTenderResponse(t))
}

func (h *TenderHandler) GetTender(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID тендера")
		return
	}

	t, err := h.getUC.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToTenderResponse(t))
}

// ListTenders обрабатывает GET /tenders?status=&category=&search=&limit=&offset=
func (h *TenderHandler) ListTenders(c *gin.Context) {
	filter := repository.TenderFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Limit:    parseIntQuery(c, "limit", defaultTenderPageSize),
		Offset:   parseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		status, err := valueobject.ParseTenderStatus(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Status = &status
	}

	tenders, err := h.listUC.Execute(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, dto.ToTenderResponses(tenders), len(tenders))
}

func (h *TenderHandler) GetTenderStats(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID тендера")
		return
	}

	stats, err := h.statsUC.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

func (h *TenderHandler) PublishTender(c *gin.Context) {
	h.transition(c, h.publishUC.Execute)
}

func (h *TenderHandler) StartEvaluation(c *gin.Context) {
	h.transition(c, h.evaluateUC.Execute)
}

func (h *TenderHandler) AwardTender(c *gin.Context) {
	h.transition(c, h.awardUC.Execute)
}

func (h *TenderHandler) RejectTender(c *gin.Context) {
	h.transition(c, h.rejectUC.Execute)
}

func (h *TenderHandler) CloseTender(c *gin.Context) {
	h.transition(c, h.closeUC.Execute)
}

// DeleteTender обрабатывает DELETE /tenders/:id?force=true
func (h *TenderHandler) DeleteTender(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID тендера")
		return
	}

	if err := h.deleteUC.Execute(c.Request.Context(), id, parseBoolQuery(c, "force")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

func (h *TenderHandler) transition(c *gin.Context, execute func(context.Context, uuid.UUID) (*entity.Tender, error)) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID тендера")
		return
	}

	t, err := execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToTenderResponse(t))
}
