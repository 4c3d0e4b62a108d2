package command

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
)

func commandDependencyError(message string) error {
	return core.NewError(message, goerrors.CategoryInternal, core.ErrorInternal, nil)
}

func commandValidationError(field string, message string) error {
	return core.ValidationFailure(field, message)
}
