package analysis

import (
	"errors"
	"fmt"
)

// Kind classifies why an analysis attempt failed.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindTransport     Kind = "transport"
	KindResponseShape Kind = "response_shape"
)

// 面向用户的提示，诊断细节只进日志
const (
	msgConfiguration = "后端没有正确配置 API Key，请联系开发者检查环境变量 %s。"
	MsgTransport     = "鉴定失败，AI 那边也被你的交易行为整破防了。"
	MsgEmptyResponse = "AI 没有返回分析结果，请稍后再试。"
	MsgUnparsable    = "鉴定失败，可能你的交易记录太离谱，连 AI 都看呆了。"
)

// ErrEmptyResponse marks a provider reply without any text payload.
var ErrEmptyResponse = errors.New("empty response")

// Error is the single failure type Analyze returns.
// Message is safe to show; Err carries the diagnostic cause.
type Error struct {
	Kind     Kind
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s error", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func configurationError(provider, envVar string) *Error {
	return &Error{
		Kind:     KindConfiguration,
		Provider: provider,
		Message:  fmt.Sprintf(msgConfiguration, envVar),
		Err:      fmt.Errorf("missing api key, set %s", envVar),
	}
}

func transportError(provider string, err error) *Error {
	return &Error{Kind: KindTransport, Provider: provider, Message: MsgTransport, Err: err}
}

func shapeError(provider string, err error) *Error {
	msg := MsgUnparsable
	if errors.Is(err, ErrEmptyResponse) {
		msg = MsgEmptyResponse
	}
	return &Error{Kind: KindResponseShape, Provider: provider, Message: msg, Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var aerr *Error
	return errors.As(err, &aerr) && aerr.Kind == kind
}
