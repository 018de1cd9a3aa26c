package app

import (
	"time"

	"github.com/yungbote/coursemap-backend/internal/platform/envutil"
)

type Config struct {
	ServiceName    string
	Environment    string
	JWTSecretKey   string
	AccessTokenTTL time.Duration
	LoginTokenTTL  time.Duration
	AppBaseURL     string
	AuthBypass     bool
	DefaultWizard  string
	DefaultVersion int
}

func LoadConfig() Config {
	return Config{
		ServiceName:    envutil.String("SERVICE_NAME", "coursemap-backend"),
		Environment:    envutil.String("APP_ENV", "development"),
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL: envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour),
		LoginTokenTTL:  envutil.Seconds("LOGIN_TOKEN_TTL", 15*time.Minute),
		AppBaseURL:     envutil.String("APP_BASE_URL", "http://localhost:3000"),
		AuthBypass:     envutil.Bool("AUTH_BYPASS", false),
		DefaultWizard:  envutil.String("DEFAULT_WIZARD_ID", "course_map_v1"),
		DefaultVersion: envutil.Int("DEFAULT_WIZARD_VERSION", 1),
	}
}
