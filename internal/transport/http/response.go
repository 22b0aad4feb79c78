package httptransport

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	platformerrors "blog-server-go/internal/platform/errors"
)

// APIResponse 定义统一的接口返回结构体
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Message   string      `json:"message"`
	Code      int         `json:"code"`
	ErrorCode string      `json:"errorCode,omitempty"`
}

// RespondSuccess 返回成功响应
func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}

	resp := APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// RespondError 返回失败响应
func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	resp := APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// RespondDomainError 把领域错误翻译成统一响应。带错误码的业务错误原样返回消息，
// 其余错误记录日志后统一返回 500。
func RespondDomainError(c *gin.Context, err error, logger Logger) {
	var typed *platformerrors.Error
	if !stderrors.As(err, &typed) || typed.Code == "" {
		if logger != nil {
			logger.Error("[HTTP] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		}
		_ = c.Error(err)
		RespondError(c, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	status := StatusForKind(typed.Kind)
	c.JSON(status, APIResponse{
		Success:   false,
		Message:   typed.Message,
		Code:      status,
		ErrorCode: typed.Code,
	})
}

// StatusForKind maps an error kind to its HTTP status.
func StatusForKind(kind platformerrors.Kind) int {
	switch kind {
	case platformerrors.KindValidation:
		return http.StatusBadRequest
	case platformerrors.KindAuth:
		return http.StatusUnauthorized
	case platformerrors.KindNotFound:
		return http.StatusNotFound
	case platformerrors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
