package client

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const DefaultTimeout = 10 * time.Second

type Config struct {
	Addr    string
	Timeout time.Duration
}

// ParseConfig reads client settings stored under key. Flags and environment
// variables bound to key.addr or key.timeout take precedence over the file.
func ParseConfig(key string) (Config, error) {
	cfg := Config{
		Addr:    viper.GetString(key + ".addr"),
		Timeout: viper.GetDuration(key + ".timeout"),
	}
	if cfg.Addr == "" {
		return Config{}, fmt.Errorf("%s.addr: address of the daemon is not set", key)
	}
	return cfg, nil
}

// Client returns a client for the daemon listening on Addr.
func (c Config) Client() (*Client, error) {
	cl, err := New(c.Addr)
	if err != nil {
		return nil, err
	}
	cl.client.Timeout = c.Timeout
	if c.Timeout <= 0 {
		cl.client.Timeout = DefaultTimeout
	}
	return cl, nil
}
