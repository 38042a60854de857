// Package raw reads the environment without logging so the logger can bootstrap from it
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Conf is a namespaced view over the environment
type Conf struct{ prefix string }

// New returns the root Conf
func New() Conf { return Conf{} }

// Prefix returns a child Conf whose keys are prefixed by p
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) lookup(k string) string { return strings.TrimSpace(os.Getenv(c.prefix + k)) }

// Get returns the trimmed value or def
func (c Conf) Get(key, def string) string {
	if v := c.lookup(key); v != "" {
		return v
	}
	return def
}

// GetBool accepts 1, true and yes as true; empty returns def
func (c Conf) GetBool(key string, def bool) bool {
	switch strings.ToLower(c.lookup(key)) {
	case "":
		return def
	case "1", "true", "yes":
		return true
	}
	return false
}

// GetInt parses a non negative int; anything else returns def
func (c Conf) GetInt(key string, def int) int {
	n, err := strconv.Atoi(c.lookup(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}
