// Package vault provides the client for the remote album storage service.
//
// Vault sources are written as vault://<vault>/<object>. They are logical
// references: the playback engine resolves them into presigned HTTP URLs
// just before handing them to the output device.
package vault

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

const sourceScheme = "vault://"

// Config represents vault client configuration.
type Config struct {
	Endpoint     string `mapstructure:"endpoint" validate:"required"`
	AccessKey    string `mapstructure:"access_key" validate:"required"`
	SecretKey    string `mapstructure:"secret_key" validate:"required"`
	UseSSL       bool   `mapstructure:"use_ssl" default:"true"`
	Vault        string `mapstructure:"vault" default:"thedrop"`
	URLExpiryMin int    `mapstructure:"url_expiry_min" default:"60" validate:"gte=1"`
}

// FromSettings decodes a loose settings map into a validated Config.
func FromSettings(settings map[string]any) (Config, error) {
	var cfg Config
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to decode vault settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to set vault defaults")
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return cfg, errors.Wrap(err, "invalid vault settings")
	}
	return cfg, nil
}

// Client talks to the vault's object storage.
type Client struct {
	mc         *minio.Client
	vault      string
	urlExpiry  time.Duration
	maxRetries int
	retryDelay time.Duration
}

// New creates a vault client and verifies the vault exists.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("vault credentials are required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage client")
	}

	exists, err := mc.BucketExists(ctx, cfg.Vault)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check vault")
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Vault, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "failed to create vault %s", cfg.Vault)
		}
		zlog.Info().Str("vault", cfg.Vault).Msg("vault: created")
	}

	return &Client{
		mc:         mc,
		vault:      cfg.Vault,
		urlExpiry:  time.Duration(cfg.URLExpiryMin) * time.Minute,
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// Source builds a vault source reference for an object.
func Source(vaultName, object string) string {
	return sourceScheme + vaultName + "/" + object
}

// ParseSource splits a vault source into its vault and object parts.
func ParseSource(source string) (vaultName, object string, err error) {
	rest, ok := strings.CutPrefix(source, sourceScheme)
	if !ok {
		return "", "", errors.Newf("not a vault source: %s", source)
	}
	vaultName, object, ok = strings.Cut(rest, "/")
	if !ok || vaultName == "" || object == "" {
		return "", "", errors.Newf("malformed vault source: %s", source)
	}
	return vaultName, object, nil
}

// Resolve converts a vault source into a presigned, directly playable URL.
func (c *Client) Resolve(ctx context.Context, source string) (string, error) {
	vaultName, object, err := ParseSource(source)
	if err != nil {
		return "", err
	}

	var u *url.URL
	err = c.retry(ctx, func() error {
		var err error
		u, err = c.mc.PresignedGetObject(ctx, vaultName, object, c.urlExpiry, nil)
		return err
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %s", source)
	}
	return u.String(), nil
}

// retry runs fn up to maxRetries times with a fixed delay, the same shape
// the rest of the infra clients use.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt < c.maxRetries-1 {
			zlog.Debug().Err(err).Int("attempt", attempt+1).Msg("vault: retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	return err
}
