package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "contact_form/pkg/errors"
)

// ErrorHandler отдает последнюю ошибку из c.Errors, если обработчик сам
// ничего не записал
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last()
		c.JSON(apperrors.HTTPStatusFromError(err.Err), gin.H{
			"error": err.Error(),
		})
	}
}
