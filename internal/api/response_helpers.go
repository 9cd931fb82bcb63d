// internal/api/response_helpers.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/SceneForge/internal/errors"
	"github.com/Corphon/SceneForge/internal/llm"
	"github.com/Corphon/SceneForge/internal/utils"
)

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseHelper 响应助手类
type ResponseHelper struct{}

// NewResponseHelper 创建响应助手
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success 成功响应
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}

	if len(message) > 0 {
		response.Message = message[0]
	}

	c.JSON(http.StatusOK, response)
}

// Created 创建成功响应
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}

	if len(message) > 0 {
		response.Message = message[0]
	} else {
		response.Message = "资源创建成功"
	}

	c.JSON(http.StatusCreated, response)
}

// sanitizeErrorMessage 去除错误信息中的密钥
func sanitizeErrorMessage(message string) string {
	return utils.RedactSecrets(message)
}

// Error 错误响应
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: sanitizeErrorMessage(message),
	}

	if len(details) > 0 {
		apiError.Details = sanitizeErrorMessage(details[0])
	}

	c.JSON(statusCode, &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	})
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message, details...)
}

// NotFound 404错误响应
func (rh *ResponseHelper) NotFound(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusNotFound, ErrorNotFound, message, details...)
}

// InternalError 500错误响应
func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, ErrorInternalError, message, details...)
}

// Conflict 409错误响应
func (rh *ResponseHelper) Conflict(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusConflict, ErrorConflict, message, details...)
}

// HandleError 按错误类型选择状态码和错误代码
func (rh *ResponseHelper) HandleError(c *gin.Context, err error) {
	status, code, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		utils.GetLogger().Error("请求处理失败", map[string]interface{}{
			"path":   c.FullPath(),
			"status": status,
			"error":  sanitizeErrorMessage(err.Error()),
		})
	}
	rh.Error(c, status, code, message, err.Error())
}

func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, llm.ErrAuthExhausted):
		return http.StatusUnauthorized, ErrorLLMAuthExhausted, "所有API密钥均被拒绝，请检查配置"
	case errors.Is(err, llm.ErrAllCredentialsFailed), errors.Is(err, llm.ErrNoCredentials):
		return http.StatusServiceUnavailable, ErrorLLMUnavailable, "文本生成服务暂时不可用"
	case errors.Is(err, llm.ErrFatal):
		return http.StatusBadGateway, ErrorLLMRequestInvalid, "文本生成请求被拒绝"
	case errors.Is(err, llm.ErrUnknownProvider):
		return http.StatusServiceUnavailable, ErrorLLMProviderMissing, "未配置文本生成服务"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorLLMTimeout, "请求超时"
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, ErrorInternalError, "服务器内部错误"
	}

	switch appErr.Type {
	case apperrors.ErrorTypeMissingScript:
		return http.StatusUnprocessableEntity, ErrorMissingScript, appErr.Message
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound, ErrorNotFound, appErr.Message
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest, ErrorValidation, appErr.Message
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict, ErrorConflict, appErr.Message
	case apperrors.ErrorTypeUpstream:
		return http.StatusBadGateway, ErrorUpstream, appErr.Message
	default:
		return http.StatusInternalServerError, appErr.Code, appErr.Message
	}
}

// DownloadResponse 下载响应（强制下载）
func (rh *ResponseHelper) DownloadResponse(c *gin.Context, content []byte, filename string, contentType string) {
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Length", fmt.Sprintf("%d", len(content)))
	c.Data(http.StatusOK, contentType, content)
}

// getRequestID 获取请求ID
func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
