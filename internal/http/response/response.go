package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/propplyai/compliance-backend/internal/platform/apierr"
)

// APIError is the wire shape of one error. Code is the machine-readable
// taxonomy value clients branch on; Message is for humans.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError resolves the status and taxonomy code from the error
// itself, so service errors map onto the envelope without per-handler
// status tables.
func RespondAPIError(c *gin.Context, err error) {
	status, code := apierr.StatusOf(err)
	RespondError(c, status, code, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
