package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds runtime settings for the FoodLog client.
//
// Units: SyncInterval and OnlineCheckInterval are time.Duration values. A
// zero SyncInterval disables automatic sync.
type Config struct {
	LocalDBPath string
	RemoteDSN   string

	UserID   string
	Accounts []string

	SyncInterval        time.Duration
	OnlineCheckInterval time.Duration
	EnableSubscriptions bool

	LogFile  string
	LogLevel string

	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LocalDBPath = "foodlog.db"
	c.RemoteDSN = "memory://"
	c.UserID = "kirk"
	c.Accounts = []string{"kirk", "manu"}
	c.SyncInterval = 5 * time.Minute
	c.OnlineCheckInterval = 3 * time.Second
	c.EnableSubscriptions = false
	c.LogFile = ""
	c.LogLevel = "info"
	c.S3Region = "us-east-1"
}

// Validate reports settings the client cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.LocalDBPath == "" {
		errs = append(errs, errors.New("local db path is empty"))
	}
	if !strings.HasPrefix(c.RemoteDSN, "memory://") &&
		!strings.HasPrefix(c.RemoteDSN, "postgres://") &&
		!strings.HasPrefix(c.RemoteDSN, "postgresql://") {
		errs = append(errs, fmt.Errorf("unsupported remote dsn %q", c.RemoteDSN))
	}
	if c.UserID == "" {
		errs = append(errs, errors.New("user id is empty"))
	} else if !c.HasAccount(c.UserID) {
		errs = append(errs, fmt.Errorf("user %q is not one of the accounts %v", c.UserID, c.Accounts))
	}
	if c.OnlineCheckInterval <= 0 {
		errs = append(errs, errors.New("online check interval must be > 0"))
	}
	if c.SyncInterval < 0 {
		errs = append(errs, errors.New("sync interval must be >= 0"))
	}
	return errors.Join(errs...)
}

func (c *Config) HasAccount(id string) bool {
	for _, a := range c.Accounts {
		if a == id {
			return true
		}
	}
	return false
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
