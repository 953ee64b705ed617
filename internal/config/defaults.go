package config

// GitHub client defaults.
const (
	DefaultAPIURL       = "https://api.github.com"
	DefaultTimeout      = "10s"
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = "500ms"
)

// Cache defaults.
const (
	DefaultCacheDir      = "~/.cache/relnotes"
	DefaultCacheIgnore   = false
	DefaultCacheCompress = false
)

// Logging defaults.
const DefaultLogLevel = "info"
