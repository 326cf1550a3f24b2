package app

import (
	"github.com/propplyai/compliance-backend/internal/platform/envutil"
)

type Config struct {
	JWTSecretKey    string
	ScorePolicyPath string
	Environment     string
}

func LoadConfig() Config {
	return Config{
		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		ScorePolicyPath: envutil.String("SCORE_POLICY_PATH", ""),
		Environment:     envutil.String("APP_ENV", "development"),
	}
}
