package modkit

import (
	"net/http"

	"echokit/internal/modkit/httpkit"
	str "echokit/internal/platform/strings"
)

// Option mutates build configuration for a module
type Option func(*Built)

// WithName sets a module name used in logs
func WithName(name string) Option { return func(b *Built) { b.Name = name } }

// WithPrefix mounts a module under a path prefix
func WithPrefix(prefix string) Option { return func(b *Built) { b.Prefix = prefix } }

// WithMiddlewares attaches per module middleware in order
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Built) { b.Mw = append(b.Mw, mw...) }
}

// WithRegister adds a function that attaches extra endpoints to the module router
func WithRegister(fn func(httpkit.Router)) Option {
	return func(b *Built) { b.Extra = append(b.Extra, fn) }
}

// Built is the resolved module configuration
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	Extra  []func(httpkit.Router)
}

// Build applies opts over defaults
func Build(defaults []Option, opts ...Option) Built {
	var b Built
	for _, o := range append(append([]Option(nil), defaults...), opts...) {
		o(&b)
	}
	return b
}

// Base implements Module for a Built config and a register func
// modules embed it and only supply their routes
type Base struct {
	B        Built
	Register func(httpkit.Router)
}

// Name implements Module
func (m Base) Name() string { return str.MustString(m.B.Name, "module name") }

// Prefix implements Module
func (m Base) Prefix() string { return str.MustPrefix(m.B.Prefix) }

// MountRoutes implements Module
func (m Base) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.Prefix(), m.B.Mw, func(sub httpkit.Router) {
		if m.Register != nil {
			m.Register(sub)
		}
		for _, fn := range m.B.Extra {
			fn(sub)
		}
	})
}
