package program

import (
	_ "embed"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	perr "echokit/internal/platform/errors"
)

//go:embed catalog.toml
var defaultCatalog string

// Catalog is an immutable set of descriptors in file order
type Catalog struct {
	order  []string
	byName map[string]Descriptor
}

type catalogFile struct {
	Program []Descriptor `toml:"program"`
}

// Load decodes a TOML catalog and validates every entry
func Load(r io.Reader) (*Catalog, error) {
	var f catalogFile
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "decode program catalog")
	}
	c := &Catalog{byName: make(map[string]Descriptor, len(f.Program))}
	for _, d := range f.Program {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(d.Name)
		if _, dup := c.byName[key]; dup {
			return nil, perr.Newf(perr.ErrorCodeDuplicateKey, "program %s listed twice", d.Name)
		}
		c.byName[key] = d
		c.order = append(c.order, d.Name)
	}
	if len(c.order) == 0 {
		return nil, perr.InvalidArgf("program catalog is empty")
	}
	return c, nil
}

// LoadFile loads a catalog from path
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "open program catalog %s", path)
	}
	defer f.Close()
	return Load(f)
}

var builtin = sync.OnceValues(func() (*Catalog, error) {
	return Load(strings.NewReader(defaultCatalog))
})

// Default returns the catalog compiled into the binary
// It panics if the embedded file is invalid, which tests guard against
func Default() *Catalog {
	c, err := builtin()
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the descriptor named name, case insensitively
func (c *Catalog) Get(name string) (Descriptor, error) {
	d, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Descriptor{}, perr.NotFoundf("unknown program %q", name)
	}
	return d, nil
}

// Names returns program names in catalog order
func (c *Catalog) Names() []string { return append([]string(nil), c.order...) }

// All returns every descriptor in catalog order
func (c *Catalog) All() []Descriptor {
	out := make([]Descriptor, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.byName[strings.ToLower(n)])
	}
	return out
}
