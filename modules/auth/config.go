package auth

import "time"

// Config holds authentication settings. TokenSecret signs every issued
// token; rotating it invalidates all outstanding sessions and links.
type Config struct {
	AppBaseURL  string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	TokenSecret string `env:"TOKEN_SECRET,required"`

	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	VerifyTokenTTL time.Duration `env:"VERIFY_TOKEN_TTL" envDefault:"24h"`
	ResetTokenTTL  time.Duration `env:"RESET_TOKEN_TTL" envDefault:"10m"`

	// RequireVerifiedEmail blocks login until the address is verified.
	RequireVerifiedEmail bool `env:"REQUIRE_VERIFIED_EMAIL" envDefault:"true"`

	// RequireLiveSession makes the request guard cross-check the session
	// store, so logout and password reset revoke tokens before expiry.
	RequireLiveSession bool `env:"REQUIRE_LIVE_SESSION" envDefault:"true"`

	BcryptCost    int    `env:"BCRYPT_COST" envDefault:"10"`
	CookieName    string `env:"AUTH_COOKIE_NAME" envDefault:"token"`
	SecureCookies bool   `env:"SECURE_COOKIES" envDefault:"false"`
}
