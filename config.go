package xevent

import (
	"fmt"
	"os"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// DefaultCapacity is the table size used when none is configured.
const DefaultCapacity = 32

// Config describes a controller. Zero ObserverWorkers means observers are
// called inline from the tick path instead of through an ObserverPool.
type Config struct {
	Capacity         int
	StartTime        uint32
	TickPeriod       time.Duration
	ObserverWorkers  int
	ObserverBuffer   int
	SlowCallback     time.Duration
	TickSource       string
	TickSourceConfig map[string]any
}

// Defaults returns a Config sized for tens of events on a 1ms tick.
func Defaults() Config {
	return Config{
		Capacity:        DefaultCapacity,
		TickPeriod:      time.Millisecond,
		ObserverWorkers: 1,
		ObserverBuffer:  1024,
	}
}

// Validate checks Config before a controller is built from it.
func (c Config) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("config: %w, got %d", ErrInvalidCapacity, c.Capacity)
	}
	if c.TickPeriod < 0 {
		return fmt.Errorf("config: tick_period must be >= 0, got %v", c.TickPeriod)
	}
	if c.ObserverWorkers < 0 {
		return fmt.Errorf("config: observer_workers must be >= 0, got %d", c.ObserverWorkers)
	}
	if c.ObserverBuffer < 0 {
		return fmt.Errorf("config: observer_buffer must be >= 0, got %d", c.ObserverBuffer)
	}
	if c.SlowCallback < 0 {
		return fmt.Errorf("config: slow_callback must be >= 0, got %v", c.SlowCallback)
	}
	return nil
}

// toMap converts Config to the generic map form.
func (c Config) toMap() map[string]any {
	return map[string]any{
		"capacity":           c.Capacity,
		"start_time":         c.StartTime,
		"tick_period":        c.TickPeriod,
		"observer_workers":   c.ObserverWorkers,
		"observer_buffer":    c.ObserverBuffer,
		"slow_callback":      c.SlowCallback,
		"tick_source":        c.TickSource,
		"tick_source_config": c.TickSourceConfig,
	}
}

// ConfigFromMap safely converts a generic map to Config, keeping defaults for
// missing or mistyped keys. Durations may be time.Duration, strings such as
// "1ms", or numbers of nanoseconds.
func ConfigFromMap(m map[string]any) Config {
	c := Defaults()

	if v, ok := MapInt(m, "capacity"); ok {
		c.Capacity = v
	}
	if v, ok := MapInt(m, "start_time"); ok && v >= 0 {
		c.StartTime = uint32(v)
	}
	if v, ok := MapDuration(m, "tick_period"); ok {
		c.TickPeriod = v
	}
	if v, ok := MapInt(m, "observer_workers"); ok {
		c.ObserverWorkers = v
	}
	if v, ok := MapInt(m, "observer_buffer"); ok {
		c.ObserverBuffer = v
	}
	if v, ok := MapDuration(m, "slow_callback"); ok {
		c.SlowCallback = v
	}
	if v, ok := m["tick_source"].(string); ok {
		c.TickSource = v
	}
	if v, ok := m["tick_source_config"].(map[string]any); ok {
		c.TickSourceConfig = v
	}

	return c
}

// LoadConfig reads a YAML controller config from path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("xevent: read config: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("xevent: yaml unmarshal: %w", err)
	}
	cfg := ConfigFromMap(raw)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MapInt reads an integer from a config map, accepting the numeric types
// that YAML, JSON and Go literals produce.
func MapInt(m map[string]any, k string) (int, bool) {
	switch v := m[k].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// MapDuration reads a duration from a config map.
func MapDuration(m map[string]any, k string) (time.Duration, bool) {
	switch v := m[k].(type) {
	case time.Duration:
		return v, true
	case string:
		if p, err := time.ParseDuration(v); err == nil {
			return p, true
		}
	case int:
		return time.Duration(v), true
	case int64:
		return time.Duration(v), true
	case float64:
		return time.Duration(v), true
	}
	return 0, false
}
