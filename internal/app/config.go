package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/revisia/revisia-backend/internal/pkg/logger"
	"github.com/revisia/revisia-backend/internal/utils"
)

type Config struct {
	HTTPAddr        string
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CORSOrigins     []string
}

// fileConfig is the optional CONFIG_FILE overlay. Environment variables
// win over file values; the file only fills what the environment left
// unset.
type fileConfig struct {
	HTTPAddr               string   `yaml:"http_addr"`
	JWTSecretKey           string   `yaml:"jwt_secret_key"`
	AccessTokenTTLSeconds  int      `yaml:"access_token_ttl_seconds"`
	RefreshTokenTTLSeconds int      `yaml:"refresh_token_ttl_seconds"`
	CORSOrigins            []string `yaml:"cors_origins"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	httpAddr := utils.GetEnv("HTTP_ADDR", "", log)
	if httpAddr == "" {
		httpAddr = fc.HTTPAddr
	}
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "", log)
	if jwtSecretKey == "" {
		jwtSecretKey = fc.JWTSecretKey
	}
	if jwtSecretKey == "" {
		jwtSecretKey = "defaultsecret"
		log.Warn("JWT_SECRET_KEY not set, using insecure default")
	}

	accessTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 0, log)
	if accessTTLSeconds == 0 {
		accessTTLSeconds = fc.AccessTokenTTLSeconds
	}
	if accessTTLSeconds == 0 {
		accessTTLSeconds = 3600
	}

	refreshTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 0, log)
	if refreshTTLSeconds == 0 {
		refreshTTLSeconds = fc.RefreshTokenTTLSeconds
	}
	if refreshTTLSeconds == 0 {
		refreshTTLSeconds = 86400 * 30
	}

	origins := fc.CORSOrigins
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins = splitCommaList(v)
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return Config{
		HTTPAddr:        httpAddr,
		JWTSecretKey:    jwtSecretKey,
		AccessTokenTTL:  time.Duration(accessTTLSeconds) * time.Second,
		RefreshTokenTTL: time.Duration(refreshTTLSeconds) * time.Second,
		CORSOrigins:     origins,
	}, nil
}

func splitCommaList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
