// Package config provides fail-open environment loaders. A missing value
// yields the default; an unparsable or invalid value also yields the default
// but is reported in Result.Warnings so the caller can log it and bump the
// fallback metrics.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of loading one configuration value.
//
//	r := LoadDuration("POLL_INTERVAL", 5*time.Minute, ValidatePositiveDuration)
//	if r.FallbackApplied {
//	    slog.Warn("config fallback", slog.Any("warnings", r.Warnings))
//	}
//	interval := r.Value
type Result[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
}

func load[T any](envKey string, defaultValue T, parse func(string) (T, error), validate func(T) error) Result[T] {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return Result[T]{Value: defaultValue}
	}

	fallback := func(reason error) Result[T] {
		return Result[T]{
			Value:           defaultValue,
			Warnings:        []string{fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'", envKey, raw, reason, defaultValue)},
			FallbackApplied: true,
		}
	}

	v, err := parse(raw)
	if err != nil {
		return fallback(err)
	}
	if validate != nil {
		if err := validate(v); err != nil {
			return fallback(err)
		}
	}
	return Result[T]{Value: v}
}

// LoadString loads a string. Whitespace-only values count as unset.
func LoadString(envKey, defaultValue string, validate func(string) error) Result[string] {
	return load(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validate)
}

// LoadInt loads a base-10 integer.
func LoadInt(envKey string, defaultValue int, validate func(int) error) Result[int] {
	return load(envKey, defaultValue, func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return n, nil
	}, validate)
}

// LoadInt64 loads a 64-bit integer.
func LoadInt64(envKey string, defaultValue int64, validate func(int64) error) Result[int64] {
	return load(envKey, defaultValue, func(s string) (int64, error) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return n, nil
	}, validate)
}

// LoadFloat loads a float64.
func LoadFloat(envKey string, defaultValue float64, validate func(float64) error) Result[float64] {
	return load(envKey, defaultValue, func(s string) (float64, error) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number format")
		}
		return f, nil
	}, validate)
}

// LoadDuration loads a time.ParseDuration string such as "90s" or "5m".
func LoadDuration(envKey string, defaultValue time.Duration, validate func(time.Duration) error) Result[time.Duration] {
	return load(envKey, defaultValue, time.ParseDuration, validate)
}

// LoadBool accepts the strconv.ParseBool spellings.
func LoadBool(envKey string, defaultValue bool) Result[bool] {
	return load(envKey, defaultValue, func(s string) (bool, error) {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
		}
		return b, nil
	}, nil)
}

// LoadStringList loads a comma separated list, dropping empty items.
func LoadStringList(envKey string, defaultValue []string) Result[[]string] {
	return load(envKey, defaultValue, func(s string) ([]string, error) {
		var out []string
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("list is empty")
		}
		return out, nil
	}, nil)
}

// Collector gathers warnings from several loads so a component can log them
// once and record fallback metrics per field.
type Collector struct {
	metrics  *Metrics
	warnings []string
	fields   []string
}

// NewCollector returns a Collector. metrics may be nil.
func NewCollector(metrics *Metrics) *Collector {
	return &Collector{metrics: metrics}
}

// Use records r under field and returns its value.
func Use[T any](c *Collector, field string, r Result[T]) T {
	if r.FallbackApplied {
		c.warnings = append(c.warnings, r.Warnings...)
		c.fields = append(c.fields, field)
		if c.metrics != nil {
			c.metrics.RecordValidationError(field)
			c.metrics.RecordFallback(field)
		}
	}
	return r.Value
}

// Warnings returns every warning collected so far.
func (c *Collector) Warnings() []string {
	return c.warnings
}

// FallbackFields lists the fields that fell back to defaults.
func (c *Collector) FallbackFields() []string {
	return c.fields
}

// Done records the load timestamp and the fallback gauge.
func (c *Collector) Done() {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordLoadTimestamp()
	c.metrics.SetFallbackActive(len(c.fields) > 0)
}
