package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/sciencecms/pmc-backend/internal/domain/aggregates"
)

// RespondAggregateError maps the aggregate error taxonomy onto HTTP status
// codes. Unknown failures surface as 500 with the internal code.
func RespondAggregateError(c *gin.Context, err error) {
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeInternal
	}
	status := http.StatusInternalServerError
	switch code {
	case domainagg.CodeValidation:
		status = http.StatusBadRequest
	case domainagg.CodeNotFound:
		status = http.StatusNotFound
	case domainagg.CodeConflict:
		status = http.StatusConflict
	case domainagg.CodePreconditionFailed:
		status = http.StatusPreconditionFailed
	case domainagg.CodeInvariantViolation:
		status = http.StatusInternalServerError
	case domainagg.CodeRetryable:
		status = http.StatusServiceUnavailable
	}
	RespondError(c, status, string(code), err)
}
