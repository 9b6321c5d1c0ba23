package redisstream

import (
	"fmt"
	"time"

	"github.com/trickstertwo/xevent"
)

// Config for exporting controller notifications to a Redis stream.
type Config struct {
	// Connection
	Addr          string
	Username      string
	Password      string
	DB            int
	TLS           bool
	TLSServerName string

	// Stream management
	Stream       string
	MaxLenApprox int64

	// Codec names the xevent codec used for the payload field (default: json).
	Codec string
	// Types restricts export to these notification types; empty exports all.
	Types []xevent.NotificationType
	// Timeout bounds each XADD round trip made from OnNotification.
	Timeout time.Duration
}

// Defaults returns a Config pointing at a local Redis.
func Defaults() Config {
	return Config{
		Addr:    "127.0.0.1:6379",
		DB:      0,
		Stream:  "xevent",
		Codec:   "json",
		Timeout: 2 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr required")
	}
	if c.Stream == "" {
		return fmt.Errorf("config: stream required")
	}
	if c.Codec == "" {
		return fmt.Errorf("config: codec required")
	}
	if c.MaxLenApprox < 0 {
		return fmt.Errorf("config: max_len_approx must be >= 0, got %d", c.MaxLenApprox)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be > 0, got %v", c.Timeout)
	}
	return nil
}

// toMap converts Config to the generic map form.
func (c Config) toMap() map[string]any {
	types := make([]string, len(c.Types))
	for i, t := range c.Types {
		types[i] = string(t)
	}
	return map[string]any{
		"addr":            c.Addr,
		"username":        c.Username,
		"password":        c.Password,
		"db":              c.DB,
		"tls":             c.TLS,
		"tls_server_name": c.TLSServerName,
		"stream":          c.Stream,
		"max_len_approx":  c.MaxLenApprox,
		"codec":           c.Codec,
		"types":           types,
		"timeout":         c.Timeout,
	}
}

// ConfigFromMap safely converts generic map to Config with defaults.
func ConfigFromMap(m map[string]any) Config {
	c := Defaults()

	if v, ok := m["addr"].(string); ok && v != "" {
		c.Addr = v
	}
	if v, ok := m["username"].(string); ok {
		c.Username = v
	}
	if v, ok := m["password"].(string); ok {
		c.Password = v
	}
	if v, ok := xevent.MapInt(m, "db"); ok {
		c.DB = v
	}
	if v, ok := m["tls"].(bool); ok {
		c.TLS = v
	}
	if v, ok := m["tls_server_name"].(string); ok {
		c.TLSServerName = v
	}
	if v, ok := m["stream"].(string); ok && v != "" {
		c.Stream = v
	}
	if v, ok := xevent.MapInt(m, "max_len_approx"); ok && v > 0 {
		c.MaxLenApprox = int64(v)
	}
	if v, ok := m["codec"].(string); ok && v != "" {
		c.Codec = v
	}
	switch v := m["types"].(type) {
	case []string:
		for _, s := range v {
			c.Types = append(c.Types, xevent.NotificationType(s))
		}
	case []any:
		for _, s := range v {
			if str, ok := s.(string); ok {
				c.Types = append(c.Types, xevent.NotificationType(str))
			}
		}
	}
	if v, ok := xevent.MapDuration(m, "timeout"); ok && v > 0 {
		c.Timeout = v
	}

	return c
}
