// internal/llm/failure.go
package llm

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

var (
	ErrFatal                = errors.New("请求无效，已终止调用")
	ErrAuthExhausted        = errors.New("所有API密钥均被拒绝")
	ErrAllCredentialsFailed = errors.New("所有API密钥均调用失败")
	ErrNoCredentials        = errors.New("未配置可用的API密钥")
	ErrEmptyResponse        = errors.New("模型返回了空文本")
)

// FailureClass 单次调用失败的分类
type FailureClass int

const (
	Unclassified FailureClass = iota
	Fatal
	AuthInvalid
	Transient
)

func (c FailureClass) String() string {
	switch c {
	case Fatal:
		return "fatal"
	case AuthInvalid:
		return "auth_invalid"
	case Transient:
		return "transient"
	default:
		return "unclassified"
	}
}

// APIError 提供者返回的HTTP错误
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API错误(%d): %s", e.Provider, e.StatusCode, e.Message)
}

// InvocationError 调用引擎最终放弃时返回的错误。
// errors.Is 可匹配 Kind，errors.As 可取到底层的 APIError。
type InvocationError struct {
	Kind     error
	Provider string
	Attempts int
	Err      error
}

func (e *InvocationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (provider=%s, attempts=%d)", e.Kind, e.Provider, e.Attempts)
	}
	return fmt.Sprintf("%s (provider=%s, attempts=%d): %v", e.Kind, e.Provider, e.Attempts, e.Err)
}

func (e *InvocationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ClassifyStatus 按HTTP状态码分类
func ClassifyStatus(status int) FailureClass {
	switch {
	case status == http.StatusBadRequest, status == http.StatusForbidden, status == http.StatusNotFound:
		return Fatal
	case status == http.StatusUnauthorized:
		return AuthInvalid
	case status == http.StatusTooManyRequests, status >= 500 && status < 600:
		return Transient
	default:
		return Unclassified
	}
}

// Classify 对提供者返回的错误分类。空响应和网络错误视为 Transient。
func Classify(err error) FailureClass {
	if err == nil {
		return Unclassified
	}
	if errors.Is(err, ErrEmptyResponse) {
		return Transient
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return ClassifyStatus(apiErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return Transient
	}

	return Unclassified
}
