package config

import "time"

const (
	DefaultServerURL        = "ws://beatnik-server.local:1780/jsonrpc"
	DefaultReconnectDelay   = 5 * time.Second
	DefaultStep             = 5
	DefaultPolicy           = "debounce"
	DefaultDebounceDelay    = 200 * time.Millisecond
	DefaultThrottleInterval = 50 * time.Millisecond
	DefaultPinCLK           = "GPIO17"
	DefaultPinDT            = "GPIO18"
	DefaultPinSW            = "GPIO27"
	DefaultButtonDebounce   = 50 * time.Millisecond
	DefaultLogLevel         = "info"
)

// Default returns the built-in configuration. It has no client id; one must
// come from the file, the environment, or a flag.
func Default() Config {
	return Config{
		Server: Server{
			URL:            DefaultServerURL,
			ReconnectDelay: D(DefaultReconnectDelay),
		},
		Volume: Volume{
			Step:             DefaultStep,
			Policy:           DefaultPolicy,
			DebounceDelay:    D(DefaultDebounceDelay),
			ThrottleInterval: D(DefaultThrottleInterval),
		},
		GPIO: GPIO{
			CLK:            DefaultPinCLK,
			DT:             DefaultPinDT,
			SW:             DefaultPinSW,
			ButtonDebounce: D(DefaultButtonDebounce),
		},
		Log: Log{Level: DefaultLogLevel},
	}
}
