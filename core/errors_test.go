package core

import (
	stderrors "errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestKindOf_UsesTextCodeThenCategory(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: KindNone},
		{name: "plain", err: stderrors.New("dial tcp: refused"), want: KindExternalAPI},
		{name: "not found", err: ErrOrderNotFound("ACME", "#1001"), want: KindLookupNotFound},
		{name: "not configured", err: ErrAccountNotConfigured("ACME"), want: KindNotConfigured},
		{name: "partial", err: NewError("partial", goerrors.CategoryExternal, ErrorPartialResponse, nil), want: KindPartialResponse},
		{name: "validation", err: ValidationFailure(FieldShippingPhone, "required"), want: KindValidation},
		{name: "internal", err: NewError("boom", goerrors.CategoryInternal, ErrorInternal, nil), want: KindInternal},
		{name: "wrapped external", err: WrapError(stderrors.New("502"), goerrors.CategoryExternal, ErrorExternalFailure, "call failed", nil), want: KindExternalAPI},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMapError_AssignsStableCodes(t *testing.T) {
	mapped := MapError(stderrors.New("order not found in store"))
	if mapped.TextCode != ErrorOrderNotFound || mapped.Code != http.StatusNotFound {
		t.Fatalf("unexpected mapping %#v", mapped)
	}
	mapped = MapError(stderrors.New("shopify throttled"))
	if mapped.TextCode != ErrorRateLimited {
		t.Fatalf("expected rate limit code, got %q", mapped.TextCode)
	}
	mapped = MapError(stderrors.New("phone is required"))
	if mapped.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad input category, got %q", mapped.Category)
	}
	if MapError(nil) != nil {
		t.Fatalf("expected nil mapping for nil error")
	}
}

func TestNewError_CarriesMetadata(t *testing.T) {
	err := ErrOrderNotFound("ACME", "1001")
	if err.Metadata["order_name"] != "1001" {
		t.Fatalf("expected metadata on envelope, got %#v", err.Metadata)
	}
	if err.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", err.Code)
	}
}

func TestStatusEvent_ValidateOrder(t *testing.T) {
	err := (StatusEvent{}).Validate()
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != ErrorBadInput {
		t.Fatalf("unexpected text code %q", rich.TextCode)
	}
	if fields := rich.AllValidationErrors(); len(fields) != 1 || fields[0].Field != FieldShippingPhone {
		t.Fatalf("expected phone checked first, got %#v", fields)
	}

	err = (StatusEvent{ShippingContact: ShippingContact{Phone: "9876543210"}}).Validate()
	if !goerrors.As(err, &rich) || rich.AllValidationErrors()[0].Field != FieldAccountCode {
		t.Fatalf("expected account code failure, got %v", err)
	}

	ok := StatusEvent{OrderID: "1001", AccountCode: "ACME", ShippingContact: ShippingContact{Phone: "9876543210"}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
}
