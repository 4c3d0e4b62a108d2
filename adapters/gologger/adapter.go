package gologger

import (
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	DefaultLoggerName     = "shipnotify"
	ReminderJobLoggerName = "reminder_job"
)

// Resolve returns the named shipnotify logger with precedence
// provider > logger > nop. A blank name resolves DefaultLoggerName.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultLoggerName
	}
	return glog.Resolve(name, provider, logger)
}

func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ReminderJobLogger resolves the logger the go-job reminder consumer reports
// rejected and exhausted deliveries through.
func ReminderJobLogger(provider glog.LoggerProvider, logger glog.Logger) job.Logger {
	_, resolved := Resolve(ReminderJobLoggerName, provider, logger)
	return ToJobLogger(resolved)
}

// ResolveForJob resolves the glog pair for name and the matching go-job
// bridges.
func ResolveForJob(
	name string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return resolvedProvider, resolvedLogger, ToJobProvider(resolvedProvider), ToJobLogger(resolvedLogger)
}
