package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/tender-portal/internal/interface/http/response"
)

// ErrorHandler логирует ошибки, накопленные в c.Errors, и отвечает за тех,
// кто ничего не успел записать в ответ. Внутренние детали клиенту не уходят.
func ErrorHandler(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()
		log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"status": c.Writer.Status(),
		}).Error("Ошибка обработки запроса")

		if c.Writer.Written() {
			return
		}
		c.JSON(http.StatusInternalServerError, response.Response{
			Success: false,
			Error: &response.ErrorInfo{
				Code:    "INTERNAL_ERROR",
				Message: "внутренняя ошибка сервера",
			},
		})
	}
}
