package ratelimit

import "time"

// Config holds the rate limiter settings. The defaults allow 100 requests
// per client IP in a 15 minute window.
type Config struct {
	Enabled  bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Requests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	Prefix   string        `env:"RATE_LIMIT_PREFIX" envDefault:"ratelimit"`
}
