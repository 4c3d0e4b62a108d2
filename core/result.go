package core

import "strings"

// ErrorKind classifies why a flow did not complete.
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindValidation      ErrorKind = "validation"
	KindLookupNotFound  ErrorKind = "lookup_not_found"
	KindExternalAPI     ErrorKind = "external_api"
	KindPartialResponse ErrorKind = "partial_response"
	KindNotConfigured   ErrorKind = "not_configured"
	KindUnsupported     ErrorKind = "unsupported"
	KindInternal        ErrorKind = "internal"
)

// Result is the outcome of processing one event. OK=true with a Reason
// describes a no-op short circuit ("nothing to do"), OK=false always carries
// a Kind.
type Result struct {
	OK     bool
	Kind   ErrorKind
	Reason string
	Err    error
}

func Succeeded(reason string) Result {
	return Result{OK: true, Reason: strings.TrimSpace(reason)}
}

func Skipped(reason string) Result {
	return Result{OK: true, Reason: strings.TrimSpace(reason)}
}

func Failed(kind ErrorKind, reason string, err error) Result {
	if kind == KindNone {
		kind = KindInternal
	}
	return Result{OK: false, Kind: kind, Reason: strings.TrimSpace(reason), Err: err}
}

// FailedFrom derives the kind from a go-errors envelope.
func FailedFrom(reason string, err error) Result {
	return Failed(KindOf(err), reason, err)
}

func (r Result) Error() string {
	if r.OK {
		return ""
	}
	if r.Err != nil {
		if r.Reason == "" {
			return r.Err.Error()
		}
		return r.Reason + ": " + r.Err.Error()
	}
	return r.Reason
}

type BatchReport struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"-"`
}

func (b *BatchReport) Add(result Result) {
	b.Total++
	if result.OK {
		b.Succeeded++
	} else {
		b.Failed++
	}
	b.Results = append(b.Results, result)
}
