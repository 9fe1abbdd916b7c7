package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/tender-portal/internal/interface/http/dto"
	"github.com/ignatzorin/tender-portal/internal/interface/http/response"
	notificationuc "github.com/ignatzorin/tender-portal/internal/usecase/notification"
)

// NotificationHandler управляет рассылками уведомлений заявителям.
type NotificationHandler struct {
	runUC *notificationuc.RunUseCase
}

func NewNotificationHandler(runUC *notificationuc.RunUseCase) *NotificationHandler {
	return &NotificationHandler{runUC: runUC}
}

// ListTemplates обрабатывает GET /notifications/templates
func (h *NotificationHandler) ListTemplates(c *gin.Context) {
	response.Success(c, h.runUC.Templates())
}

// PreviewRecipients обрабатывает POST /notifications/recipients
func (h *NotificationHandler) PreviewRecipients(c *gin.Context) {
	var req dto.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	recipients, err := h.runUC.PreviewRecipients(c.Request.Context(), req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, dto.ToRecipientResponses(recipients), len(recipients))
}

// PreviewMessage обрабатывает POST /notifications/preview
func (h *NotificationHandler) PreviewMessage(c *gin.Context) {
	var req dto.PreviewMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	rendered, err := h.runUC.PreviewMessage(c.Request.Context(), req.TemplateID, req.SubmissionID, req.CustomMessage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, rendered)
}

// StartJob обрабатывает POST /notifications/jobs[?wait=true].
// Без wait отвечает 202 со снимком подготовленной рассылки.
func (h *NotificationHandler) StartJob(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.StartJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	wait := parseBoolQuery(c, "wait")
	report, err := h.runUC.Start(c.Request.Context(), req.ToInput(userID, wait))
	if err != nil {
		response.Error(c, err)
		return
	}

	if wait {
		response.Success(c, report)
		return
	}
	response.Accepted(c, report)
}

// GetJob обрабатывает GET /notifications/jobs/:id
func (h *NotificationHandler) GetJob(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID рассылки")
		return
	}

	report, err := h.runUC.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, report)
}

// CancelJob обрабатывает POST /notifications/jobs/:id/cancel
func (h *NotificationHandler) CancelJob(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID рассылки")
		return
	}

	report, err := h.runUC.Cancel(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, report)
}

// RetryJob обрабатывает POST /notifications/jobs/:id/retry[?wait=true]
func (h *NotificationHandler) RetryJob(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	id, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID рассылки")
		return
	}

	wait := parseBoolQuery(c, "wait")
	report, err := h.runUC.RetryFailed(c.Request.Context(), id, userID, wait)
	if err != nil {
		response.Error(c, err)
		return
	}

	if wait {
		response.Success(c, report)
		return
	}
	response.Accepted(c, report)
}
