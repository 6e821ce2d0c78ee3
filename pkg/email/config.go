package email

// Config holds email service configuration. The Postmark tokens are optional
// so development environments can run with the file-based sender; the sender
// and support addresses establish the identity of all outbound mail.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"no-reply@feedforward.app"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@feedforward.app"`
	DevOutputDir         string `env:"EMAIL_DEV_OUTPUT_DIR" envDefault:"./var/emails"`
}
