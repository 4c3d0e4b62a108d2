package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	FieldShippingPhone = "shipping_phone"
	FieldAccountCode   = "account_code"
	FieldOrderID       = "order_id"
)

func validationError(field string, message string) *goerrors.Error {
	return goerrors.NewValidation("core: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorBadInput).
		WithSeverity(goerrors.SeverityError)
}

// Validate checks phone, account code and order id in that order and
// returns the first missing field.
func (e StatusEvent) Validate() error {
	if strings.TrimSpace(e.Phone) == "" {
		return validationError(FieldShippingPhone, "customer phone is required")
	}
	if strings.TrimSpace(e.AccountCode) == "" {
		return validationError(FieldAccountCode, "account code is required")
	}
	if strings.TrimSpace(e.OrderID) == "" {
		return validationError(FieldOrderID, "order id is required")
	}
	return nil
}

func ValidationFailure(field string, message string) error {
	return validationError(field, message)
}
