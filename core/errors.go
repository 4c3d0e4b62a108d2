package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput             = "SHIPNOTIFY_BAD_INPUT"
	ErrorOrderNotFound        = "SHIPNOTIFY_ORDER_NOT_FOUND"
	ErrorAccountNotConfigured = "SHIPNOTIFY_ACCOUNT_NOT_CONFIGURED"
	ErrorExternalFailure      = "SHIPNOTIFY_EXTERNAL_FAILURE"
	ErrorPartialResponse      = "SHIPNOTIFY_PARTIAL_RESPONSE"
	ErrorRateLimited          = "SHIPNOTIFY_RATE_LIMITED"
	ErrorUnauthorized         = "SHIPNOTIFY_UNAUTHORIZED"
	ErrorUnsupported          = "SHIPNOTIFY_UNSUPPORTED"
	ErrorInternal             = "SHIPNOTIFY_INTERNAL_ERROR"
)

func NewError(message string, category goerrors.Category, textCode string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(strings.TrimSpace(message), category).
		WithCode(HTTPStatus(category)).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func WrapError(source error, category goerrors.Category, textCode string, message string, metadata map[string]any) *goerrors.Error {
	if source == nil {
		return NewError(message, category, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, strings.TrimSpace(message)).
		WithCode(HTTPStatus(category)).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func ErrOrderNotFound(accountCode string, name string) *goerrors.Error {
	return NewError("core: order not found", goerrors.CategoryNotFound, ErrorOrderNotFound, map[string]any{
		"account_code": accountCode,
		"order_name":   name,
	})
}

func ErrAccountNotConfigured(accountCode string) *goerrors.Error {
	return NewError("core: account is not configured", goerrors.CategoryBadInput, ErrorAccountNotConfigured, map[string]any{
		"account_code": accountCode,
	})
}

// KindOf maps an error envelope to the engine's error kind. Errors without an
// envelope are treated as external failures since every unwrapped error in
// the engine originates from a transport or driver.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return KindExternalAPI
	}
	switch rich.TextCode {
	case ErrorOrderNotFound:
		return KindLookupNotFound
	case ErrorAccountNotConfigured:
		return KindNotConfigured
	case ErrorPartialResponse:
		return KindPartialResponse
	case ErrorUnsupported:
		return KindUnsupported
	}
	switch rich.Category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return KindValidation
	case goerrors.CategoryNotFound:
		return KindLookupNotFound
	case goerrors.CategoryInternal:
		return KindInternal
	default:
		return KindExternalAPI
	}
}

// MapError normalizes any error into an envelope with an HTTP status and a
// text code.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return ensureErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryNotFound).WithTextCode(ErrorOrderNotFound))
	case strings.Contains(msg, "throttl"), strings.Contains(msg, "rate limit"):
		return ensureErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryRateLimit).WithTextCode(ErrorRateLimited))
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return ensureErrorEnvelope(goerrors.New(err.Error(), goerrors.CategoryBadInput).WithTextCode(ErrorBadInput))
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = HTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = DefaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func DefaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorOrderNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorUnauthorized
	case goerrors.CategoryRateLimit:
		return ErrorRateLimited
	case goerrors.CategoryExternal, goerrors.CategoryOperation:
		return ErrorExternalFailure
	default:
		return ErrorInternal
	}
}

func HTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
