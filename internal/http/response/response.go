package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemap-backend/internal/platform/apierr"
)

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

// RespondAPIError maps service errors onto the wire contract; anything
// that is not an *apierr.Error comes out as a 500 internal.
func RespondAPIError(c *gin.Context, err error) {
	status, code := apierr.StatusAndCode(err)
	RespondError(c, status, code, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
