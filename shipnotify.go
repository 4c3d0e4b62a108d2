package shipnotify

import "github.com/goliatone/go-shipnotify/core"

type Config = core.Config

type AccountConfig = core.AccountConfig

type StatusEvent = core.StatusEvent

type Result = core.Result

type BatchReport = core.BatchReport

type Ledger = core.Ledger

type Logger = core.Logger

type LoggerProvider = core.LoggerProvider

type MetricsRecorder = core.MetricsRecorder

type ConfigProvider = core.ConfigProvider

type OptionsResolver = core.OptionsResolver

var (
	NewCfgxConfigProvider = core.NewCfgxConfigProvider
	LoadConfig            = core.LoadConfig
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}
