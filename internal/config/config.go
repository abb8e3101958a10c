package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DB      DBConfig
	Session SessionConfig
	Server  ServerConfig
	MinIO   MinIOConfig
	Uploads UploadConfig
	Legacy  LegacyOwnerConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type SessionConfig struct {
	Secret          string
	ExpirationHours int
	CookieName      string
	CookieSecure    bool
}

type ServerConfig struct {
	Port           string
	FrontendOrigin string
}

type MinIOConfig struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

type UploadConfig struct {
	MaxFileSize       int64
	MaxFilesPerUpload int
	AllowedExtensions []string
}

// LegacyOwnerConfig names the user assigned to pre-auth projects during the
// ownership backfill migration.
type LegacyOwnerConfig struct {
	UserID      string
	DisplayName string
	Password    string
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "nexus"),
			Password: getEnv("DB_PASSWORD", "nexus_secret"),
			Name:     getEnv("DB_NAME", "nexus"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Session: SessionConfig{
			Secret:          getEnv("SESSION_SECRET", "change-this-session-secret"),
			ExpirationHours: getEnvAsInt("SESSION_EXPIRATION_HOURS", 24),
			CookieName:      getEnv("SESSION_COOKIE_NAME", "nexus_session"),
			CookieSecure:    getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			FrontendOrigin: getEnv("FRONTEND_ORIGIN", "http://localhost:3001"),
		},
		MinIO: MinIOConfig{
			Endpoint:       getEnv("MINIO_ENDPOINT", "localhost:9000"),
			PublicEndpoint: getEnv("MINIO_PUBLIC_ENDPOINT", getEnv("MINIO_ENDPOINT", "localhost:9000")),
			AccessKey:      getEnv("MINIO_ACCESS_KEY", "nexus"),
			SecretKey:      getEnv("MINIO_SECRET_KEY", "nexus_secret"),
			Bucket:         getEnv("MINIO_BUCKET", "nexus-uploads"),
			UseSSL:         getEnvAsBool("MINIO_USE_SSL", false),
		},
		Uploads: UploadConfig{
			MaxFileSize:       getEnvAsInt64("UPLOAD_MAX_FILE_SIZE", 4*1024*1024),
			MaxFilesPerUpload: getEnvAsInt("UPLOAD_MAX_FILES", 5),
			AllowedExtensions: getEnvAsList("UPLOAD_ALLOWED_EXTENSIONS",
				".pdf,.png,.jpg,.jpeg,.gif,.webp,.doc,.docx,.txt,.md"),
		},
		Legacy: LegacyOwnerConfig{
			UserID:      getEnv("LEGACY_OWNER_USER_ID", ""),
			DisplayName: getEnv("LEGACY_OWNER_DISPLAY_NAME", ""),
			Password:    getEnv("LEGACY_OWNER_PASSWORD", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
