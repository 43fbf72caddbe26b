package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONResponse is the envelope of every terminal API answer. Code names the
// failure class on errors.
type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, err error) {
	RespondErrorCode(c, code, "", err, nil)
}

// RespondErrorCode writes a failed envelope with a machine-readable class and
// optional data, such as the sync status after a failed run.
func RespondErrorCode(c *gin.Context, code int, class string, err error, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Code:    class,
		Data:    data,
	})
}
