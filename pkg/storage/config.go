package storage

// Config holds media storage configuration. Driver selects the backend:
// "s3" for S3-compatible object storage, "local" for the filesystem.
type Config struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"local"`

	S3Bucket         string `env:"S3_BUCKET"`
	S3Region         string `env:"S3_REGION" envDefault:"us-east-1"`
	S3AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey      string `env:"S3_SECRET_KEY"`
	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3BaseURL        string `env:"S3_BASE_URL"`
	S3ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`

	LocalDir     string `env:"STORAGE_LOCAL_DIR" envDefault:"./var/uploads"`
	LocalBaseURL string `env:"STORAGE_LOCAL_BASE_URL" envDefault:"/uploads/"`
}
