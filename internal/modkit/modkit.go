package modkit

import (
	"echokit/internal/modkit/httpkit"
)

// Module is the common surface for API modules
type Module interface {
	// Name returns the module name used in logs
	Name() string
	// Prefix is the path the module mounts under
	Prefix() string
	// MountRoutes mounts HTTP routes under the provided router seam
	MountRoutes(r httpkit.Router)
}

// MountAll mounts every module under r
func MountAll(r httpkit.Router, mods ...Module) {
	for _, m := range mods {
		m.MountRoutes(r)
	}
}
