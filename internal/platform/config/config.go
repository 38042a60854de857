// Package config reads configuration from prefixed environment variables
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"echokit/internal/platform/logger"
)

// Conf is a namespaced view over the environment, e.g. Prefix("ECHO_")
type Conf struct{ prefix string }

// New returns the root Conf
func New() Conf { return Conf{} }

// Prefix returns a child Conf whose keys are prefixed by p
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// Key returns the fully qualified variable name for k
func (c Conf) Key(k string) string { return c.prefix + k }

func (c Conf) lookup(k string) string { return strings.TrimSpace(os.Getenv(c.Key(k))) }

func (c Conf) required(k string) string {
	v := c.lookup(k)
	if v == "" {
		logger.Get().Panic().Str("key", c.Key(k)).Msg("missing required env")
	}
	return v
}

// MustString returns the value or panics when it is empty
func (c Conf) MustString(key string) string { return c.required(key) }

// MustInt returns the value as int or panics
func (c Conf) MustInt(key string) int {
	s := c.required(key)
	v, err := strconv.Atoi(s)
	if err != nil {
		logger.Get().Panic().Str("key", c.Key(key)).Str("value", s).Msg("invalid int value")
	}
	return v
}

// MustURL returns the value as an absolute URL or panics
func (c Conf) MustURL(key string) *url.URL {
	s := c.required(key)
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		logger.Get().Panic().Str("key", c.Key(key)).Str("value", s).Msg("invalid absolute URL")
	}
	return u
}

// MayString returns the value or def
func (c Conf) MayString(key, def string) string {
	if v := c.lookup(key); v != "" {
		return v
	}
	return def
}

// MayInt returns the value or def; invalid values log a warning and fall back
func (c Conf) MayInt(key string, def int) int {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.Key(key)).Str("value", s).Int("default", def).Msg("invalid int; using default")
		return def
	}
	return v
}

// MayFloat64 returns the value or def; invalid values log a warning and fall back
func (c Conf) MayFloat64(key string, def float64) float64 {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		logger.Get().Warn().Str("key", c.Key(key)).Str("value", s).Float64("default", def).Msg("invalid float; using default")
		return def
	}
	return v
}

// MayBool returns the value or def; invalid values log a warning and fall back
func (c Conf) MayBool(key string, def bool) bool {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.Key(key)).Str("value", s).Bool("default", def).Msg("invalid bool; using default")
		return def
	}
	return v
}

// MayDuration returns the value or def; invalid values log a warning and fall back
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.Key(key)).Str("value", s).Dur("default", def).Msg("invalid duration; using default")
		return def
	}
	return d
}

// MayCSV splits a comma separated value, dropping blanks; def when nothing remains
func (c Conf) MayCSV(key string, def []string) []string {
	var out []string
	for _, p := range strings.Split(c.lookup(key), ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns the lower cased value when it is one of allowed, def when unset, and panics otherwise
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return strings.ToLower(a)
		}
	}
	logger.Get().Panic().Str("key", c.Key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
