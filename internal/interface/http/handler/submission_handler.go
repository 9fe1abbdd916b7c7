package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/interface/http/dto"
	"github.com/ignatzorin/tender-portal/internal/interface/http/response"
	"github.com/ignatzorin/tender-portal/internal/usecase/submission"
)

type SubmissionHandler struct {
	createUC   *submission.CreateSubmissionUseCase
	getUC      *submission.GetSubmissionUseCase
	listUC     *submission.ListSubmissionsUseCase
	reviewUC   *submission.StartReviewUseCase
	evaluateUC *submission.EvaluateSubmissionUseCase
	awardUC    *submission.AwardSubmissionUseCase
	rejectUC   *submission.RejectSubmissionUseCase
}

func NewSubmissionHandler(
	createUC *submission.CreateSubmissionUseCase,
	getUC *submission.GetSubmissionUseCase,
	listUC *submission.ListSubmissionsUseCase,
	reviewUC *submission.StartReviewUseCase,
	evaluateUC *submission.EvaluateSubmissionUseCase,
	awardUC *submission.AwardSubmissionUseCase,
	rejectUC *submission.RejectSubmissionUseCase,
) *SubmissionHandler {
	return &SubmissionHandler{
		createUC:   createUC,
		getUC:      getUC,
		listUC:     listUC,
		reviewUC:   reviewUC,
		evaluateUC: evaluateUC,
		awardUC:    awardUC,
		rejectUC:   rejectUC,
	}
}

func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	var req dto.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	sub, err := h.createUC.Execute(c.Request.Context(), req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToSubmissionResponse(sub))
}

func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID заявки")
		return
	}

	sub, err := h.getUC.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToSubmissionResponse(sub))
}

// ListSubmissions обрабатывает GET /submissions?tender_id=&status=
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	tenderID, err := parseUUIDQuery(c, "tender_id")
	if err != nil {
		response.BadRequest(c, "некорректный tender_id")
		return
	}

	subs, err := h.listUC.Execute(c.Request.Context(), submission.ListSubmissionsInput{
		TenderID: tenderID,
		Status:   c.Query("status"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, dto.ToSubmissionResponses(subs), len(subs))
}

func (h *SubmissionHandler) StartReview(c *gin.Context) {
	h.transition(c, h.reviewUC.Execute)
}

func (h *SubmissionHandler) EvaluateSubmission(c *gin.Context) {
	var req dto.EvaluateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "оценка обязательна")
		return
	}

	h.transition(c, func(ctx context.Context, id uuid.UUID) (*entity.Submission, error) {
		return h.evaluateUC.Execute(ctx, id, *req.Score)
	})
}

func (h *SubmissionHandler) AwardSubmission(c *gin.Context) {
	h.transition(c, h.awardUC.Execute)
}

func (h *SubmissionHandler) RejectSubmission(c *gin.Context) {
	h.transition(c, h.rejectUC.Execute)
}

func (h *SubmissionHandler) transition(c *gin.Context, execute func(context.Context, uuid.UUID) (*entity.Submission, error)) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID заявки")
		return
	}

	sub, err := execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToSubmissionResponse(sub))
}
