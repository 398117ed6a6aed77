package config

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var portFlag = flag.String("port", ":8080", "server port")

type Config struct {
	Port     string
	Env      string
	BaseURL  string
	Artifact ArtifactConfig
	Oracle   OracleConfig
	Generate GenerateConfig
	Queue    QueueConfig
	Store    StoreConfig
	Share    ShareConfig
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type OracleConfig struct {
	APIKey      string
	ChatModel   string
	VisionModel string
}

// GenerateConfig controls the image/video generation pipeline.
type GenerateConfig struct {
	ImageModel   string
	ImagenModel  string
	VideoModels  []string
	RESTEndpoint string
	RESTAPIKey   string
	ImageTimeout time.Duration
	VideoTimeout time.Duration
	// StrictErrors propagates generation failures as errors instead of
	// degrading to a text-only response.
	StrictErrors bool
}

type QueueConfig struct {
	MinInterval    time.Duration
	WindowDuration time.Duration
	WindowCeiling  int
	StaleAfter     time.Duration
	MaxAttempts    int
	QuotaBackoff   time.Duration
	RetryDelay     time.Duration
	CoolDown       time.Duration
}

// StoreConfig holds the Postgres DSN for CRM and analytics persistence.
// When empty, in-memory stores are used.
type StoreConfig struct {
	DatabaseURL string
}

type ShareConfig struct {
	TTL     time.Duration
	MaxHeld int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	if !flag.Parsed() {
		flag.Parse()
	}
	port := *portFlag
	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			port = envPort
		} else {
			port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	cfg := &Config{
		Port:     port,
		Env:      env,
		BaseURL:  firstNonEmpty(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "http://localhost:8080"),
		Artifact: loadArtifactConfig(env),
		Oracle: OracleConfig{
			APIKey:      strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			ChatModel:   firstNonEmpty(strings.TrimSpace(os.Getenv("ORACLE_CHAT_MODEL")), "gemini-2.0-flash"),
			VisionModel: firstNonEmpty(strings.TrimSpace(os.Getenv("ORACLE_VISION_MODEL")), "gemini-2.0-flash"),
		},
		Generate: GenerateConfig{
			ImageModel:   firstNonEmpty(strings.TrimSpace(os.Getenv("IMAGE_MODEL")), "gemini-2.0-flash-exp"),
			ImagenModel:  firstNonEmpty(strings.TrimSpace(os.Getenv("IMAGEN_MODEL")), "imagen-3.0-generate-002"),
			VideoModels:  splitList(firstNonEmpty(os.Getenv("VIDEO_MODELS"), "veo-2.0-generate-001")),
			RESTEndpoint: strings.TrimSpace(os.Getenv("REST_IMAGE_ENDPOINT")),
			RESTAPIKey:   strings.TrimSpace(os.Getenv("REST_IMAGE_API_KEY")),
			ImageTimeout: envDuration("IMAGE_TIMEOUT", 60*time.Second),
			VideoTimeout: envDuration("VIDEO_TIMEOUT", 180*time.Second),
			StrictErrors: envBool("GENERATE_STRICT_ERRORS", false),
		},
		Queue: QueueConfig{
			MinInterval:    envDuration("QUEUE_MIN_INTERVAL", 600*time.Millisecond),
			WindowDuration: envDuration("QUEUE_WINDOW", time.Minute),
			WindowCeiling:  envInt("QUEUE_WINDOW_CEILING", 10),
			StaleAfter:     envDuration("QUEUE_STALE_AFTER", 5*time.Minute),
			MaxAttempts:    envInt("QUEUE_MAX_ATTEMPTS", 3),
			QuotaBackoff:   envDuration("QUEUE_QUOTA_BACKOFF", 10*time.Second),
			RetryDelay:     envDuration("QUEUE_RETRY_DELAY", 2*time.Second),
			CoolDown:       envDuration("QUEUE_COOL_DOWN", 200*time.Millisecond),
		},
		Store: StoreConfig{
			DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		},
		Share: ShareConfig{
			TTL:     envDuration("SHARE_TTL", 7*24*time.Hour),
			MaxHeld: envInt("SHARE_MAX_HELD", 1024),
		},
	}
	if cfg.Oracle.APIKey == "" {
		return nil, errors.New("config: GEMINI_API_KEY is required")
	}
	return cfg, nil
}

func loadArtifactConfig(env string) ArtifactConfig {
	endpoint := resolveArtifactEndpoint(env)
	return ArtifactConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "atelier-artifacts"),
		UseSSL:    resolveArtifactUseSSL(env),
	}
}

func resolveArtifactEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT")), "minio:9000")
	}
	return strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
}

func resolveArtifactUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
