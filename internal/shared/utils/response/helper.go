package response

import "github.com/gin-gonic/gin"

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError writes an error envelope carrying a stable machine code
// alongside the human-readable message. Internal diagnostics stay server-side.
func RespondError(c *gin.Context, httpStatus int, code, message string, details interface{}) {
	c.JSON(httpStatus, StandardApiResponse{
		Status:     "error",
		StatusCode: httpStatus,
		Code:       code,
		Message:    message,
		Errors:     details,
	})
}
