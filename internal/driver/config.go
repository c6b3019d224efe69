package driver

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Options configures one compilation run: spec.md §6's CLI surface
// (--test-harness) plus the pipeline options a config file may also
// supply (SPEC_FULL.md §2).
type Options struct {
	TestHarness   bool
	HeapBasePages uint32
	EntryFunction string
}

// Config is the optional YAML pipeline-options file: heap-base page
// count and entry function override, grounded on the same
// tooling-config convention `raymyers/ralph-cc-go` and
// `kanso-lang/kanso` use for their own compiler drivers.
type Config struct {
	HeapBasePages uint32 `yaml:"heap_base_pages"`
	EntryFunction string `yaml:"entry_function"`
}

// LoadConfig reads and parses a pipeline-options file at path.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "driver: reading config %q", path)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, errors.Wrapf(err, "driver: parsing config %q", path)
	}
	return c, nil
}

// WithConfig fills in any field a CLI flag left at its zero value from
// cfg. CLI flags always take precedence over the config file (SPEC_FULL.md
// §2), so a field o already set is never overwritten.
func (o Options) WithConfig(cfg Config) Options {
	if o.HeapBasePages == 0 {
		o.HeapBasePages = cfg.HeapBasePages
	}
	if o.EntryFunction == "" {
		o.EntryFunction = cfg.EntryFunction
	}
	return o
}
