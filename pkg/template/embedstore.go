package template

import (
	"embed"
	"fmt"
	"strings"

	"github.com/topolens/topolens/pkg/template/textfsmdata"
)

const templateExt = ".textfsm"

// EmbeddedStore serves templates out of a compiled-in embed.FS — the
// "flat directory of .textfsm files" half of the §6 template store
// contract.
type EmbeddedStore struct {
	fs embed.FS
}

// NewEmbeddedStore wraps an arbitrary embed.FS of *.textfsm files.
func NewEmbeddedStore(fs embed.FS) *EmbeddedStore {
	return &EmbeddedStore{fs: fs}
}

func (s *EmbeddedStore) Names() []string {
	entries, err := s.fs.ReadDir(".")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), templateExt) {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), templateExt))
	}
	return out
}

func (s *EmbeddedStore) Source(name string) (string, error) {
	data, err := s.fs.ReadFile(name + templateExt)
	if err != nil {
		return "", fmt.Errorf("template %q not found: %w", name, err)
	}
	return string(data), nil
}

// DefaultStore returns the built-in template set shipped with the binary.
func DefaultStore() *EmbeddedStore {
	return NewEmbeddedStore(textfsmdata.FS)
}
