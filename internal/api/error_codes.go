// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorValidation    = "VALIDATION_ERROR"

	// 项目相关错误
	ErrorProjectNotFound = "PROJECT_NOT_FOUND"
	ErrorMissingScript   = "MISSING_SCRIPT"

	// LLM服务相关错误
	ErrorLLMAuthExhausted   = "LLM_AUTH_EXHAUSTED"
	ErrorLLMUnavailable     = "LLM_UNAVAILABLE"
	ErrorLLMRequestInvalid  = "LLM_REQUEST_INVALID"
	ErrorLLMProviderMissing = "LLM_PROVIDER_MISSING"
	ErrorLLMTimeout         = "LLM_TIMEOUT"
	ErrorUpstream           = "UPSTREAM_ERROR"

	// 导出相关错误
	ErrorExportFailed        = "EXPORT_FAILED"
	ErrorExportFormatInvalid = "EXPORT_FORMAT_INVALID"
)
