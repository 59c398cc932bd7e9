package server

import (
	"crypto/tls"
	"time"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
)

const (
	defaultAddress     = "0.0.0.0:8080"
	defaultEndpoint    = "/webhook"
	defaultTimeout     = 30 * time.Second
	defaultMaxBodySize = 25 << 20 // GitHub caps webhook payloads at 25MB
)

// Config represents webhook server configuration
type Config struct {
	Address  string        `yaml:"address" env:"SERVER_ADDRESS"`
	Endpoint string        `yaml:"endpoint" env:"SERVER_ENDPOINT"`
	Timeout  time.Duration `yaml:"timeout" env:"SERVER_TIMEOUT"`

	// MaxBodySize limits a webhook payload in bytes.
	MaxBodySize int64 `yaml:"max_body_size" env:"SERVER_MAX_BODY_SIZE"`

	CertFilePath string `yaml:"cert_file_path" env:"CERT_FILE_PATH"`
	KeyFilePath  string `yaml:"key_file_path" env:"KEY_FILE_PATH"`
	EnableHTTPS  bool   `yaml:"enable_https" env:"SERVER_ENABLE_HTTPS"`

	Verbose bool `yaml:"verbose" env:"SERVER_VERBOSE"`

	Certificate tls.Certificate `yaml:"-"`
}

func (c *Config) PrepareAndValidate() error {
	if c.MaxBodySize < 0 {
		return errm.New("max body size must not be negative", "max_body_size", c.MaxBodySize)
	}
	c.Address = lang.Check(c.Address, defaultAddress)
	c.Endpoint = lang.Check(c.Endpoint, defaultEndpoint)
	c.Timeout = lang.Check(c.Timeout, defaultTimeout)
	c.MaxBodySize = lang.Check(c.MaxBodySize, defaultMaxBodySize)

	if !c.EnableHTTPS {
		return nil
	}
	if c.CertFilePath == "" || c.KeyFilePath == "" {
		return errm.New("cert_file_path and key_file_path must be set when enable_https is true")
	}
	cert, err := tls.LoadX509KeyPair(c.CertFilePath, c.KeyFilePath)
	if err != nil {
		return errm.Wrap(err, "failed to load certificate and key pair", "cert", c.CertFilePath)
	}
	c.Certificate = cert

	return nil
}
