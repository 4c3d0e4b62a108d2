package inbound

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
)

func inboundError(message string, category goerrors.Category, textCode string, metadata map[string]any) error {
	return core.NewError(message, category, textCode, metadata)
}

func inboundWrapError(source error, category goerrors.Category, textCode string, message string, metadata map[string]any) error {
	if source == nil {
		return inboundError(message, category, textCode, metadata)
	}
	return core.WrapError(source, category, textCode, message, metadata)
}

func inboundBadInput(message string, metadata map[string]any) error {
	return inboundError(message, goerrors.CategoryBadInput, core.ErrorBadInput, metadata)
}

func inboundInternal(message string, metadata map[string]any) error {
	return inboundError(message, goerrors.CategoryInternal, core.ErrorInternal, metadata)
}
