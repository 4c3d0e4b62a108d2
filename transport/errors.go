package transport

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(core.DefaultTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(core.DefaultTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// StatusError converts a non-2xx response into an external failure envelope.
// 429 maps to the rate limit category and 401/403 to auth.
func StatusError(operation string, res core.TransportResponse) error {
	category := goerrors.CategoryExternal
	switch {
	case res.StatusCode == 429:
		category = goerrors.CategoryRateLimit
	case res.StatusCode == 401:
		category = goerrors.CategoryAuth
	case res.StatusCode == 403:
		category = goerrors.CategoryAuthz
	}
	body := string(res.Body)
	if len(body) > 512 {
		body = body[:512]
	}
	return transportError(
		"transport: "+operation+" returned a non-success status",
		category,
		core.HTTPStatus(category),
		map[string]any{
			"operation":   operation,
			"status_code": res.StatusCode,
			"body":        body,
		},
	)
}

func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
