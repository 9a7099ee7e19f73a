package config

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/postkeeper/internal/flagx"
	"github.com/dmitrijs2005/postkeeper/internal/timex"
	"github.com/goccy/go-json"
)

// JsonConfig is a DTO used only for reading JSON configuration files. It
// uses timex.Duration so intervals may be strings like "1m" or integer
// nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	MediaPublicBaseURL           string         `json:"media_public_base_url"`
	UploadURLValidity            timex.Duration `json:"upload_url_validity"`
	PublishSchedule              string         `json:"publish_schedule"`
	LogLevel                     string         `json:"log_level"`
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays Config with the non-empty values of the JSON file named
// by -c or -config. Without either flag it does nothing.
func parseJson(cfg *Config, args []string) error {
	jsonConfigFile := flagx.ConfigFile(args)
	if jsonConfigFile == "" {
		return nil
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var c JsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse config %s: %w", jsonConfigFile, err)
	}

	overlay(&cfg.EndpointAddrGRPC, c.EndpointAddrGRPC)
	overlay(&cfg.EndpointAddrHTTP, c.EndpointAddrHTTP)
	overlay(&cfg.DatabaseDSN, c.DatabaseDSN)
	overlay(&cfg.SecretKey, c.SecretKey)
	overlay(&cfg.S3RootUser, c.S3RootUser)
	overlay(&cfg.S3RootPassword, c.S3RootPassword)
	overlay(&cfg.S3Bucket, c.S3Bucket)
	overlay(&cfg.S3Region, c.S3Region)
	overlay(&cfg.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&cfg.MediaPublicBaseURL, c.MediaPublicBaseURL)
	overlay(&cfg.PublishSchedule, c.PublishSchedule)
	overlay(&cfg.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration.Duration > 0 {
		cfg.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		cfg.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.UploadURLValidity.Duration > 0 {
		cfg.UploadURLValidity = c.UploadURLValidity.Duration
	}
	return nil
}
