package execution

import (
	"flag"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
	"mit.edu/dsg/qexec/common"
)

// DefaultCollationName is the collation name a sort item uses to ask for Config.DefaultCollation.
const DefaultCollationName = "default"

// Config configures the binder and the executors it builds.
type Config struct {
	// VerifyOrdering makes merge-based executors check that their inputs really deliver rows in the order
	// they declare, failing the pass with an OrderViolationError otherwise.
	VerifyOrdering bool `yaml:"verify_ordering"`
	// SortRowLimit caps the number of rows a sort may buffer. Zero means no limit.
	SortRowLimit int `yaml:"sort_row_limit"`
	// DefaultCollation is the language tag used by sort items whose collation is "default".
	DefaultCollation string `yaml:"default_collation"`
}

// RegisterFlags registers the flags of the config and sets their defaults.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.BoolVar(&cfg.VerifyOrdering, "qexec.verify-ordering", false, "Check that inputs of merge joins and merged inheritance indexes are ordered as declared.")
	f.IntVar(&cfg.SortRowLimit, "qexec.sort-row-limit", 0, "Maximum number of rows a sort may buffer. 0 to disable.")
	f.StringVar(&cfg.DefaultCollation, "qexec.default-collation", "", "Language tag of the default string collation. Empty for binary order.")
}

// DefaultConfig returns the config with every flag default applied.
func DefaultConfig() Config {
	var cfg Config
	cfg.RegisterFlags(flag.NewFlagSet("defaults", flag.PanicOnError))
	return cfg
}

// Validate checks the config for errors.
func (cfg *Config) Validate() error {
	if cfg.SortRowLimit < 0 {
		return errors.Newf("sort_row_limit must be >= 0, got %d", cfg.SortRowLimit)
	}
	if cfg.DefaultCollation != "" {
		if _, err := language.Parse(cfg.DefaultCollation); err != nil {
			return errors.Wrapf(err, "invalid default_collation %q", cfg.DefaultCollation)
		}
	}
	return nil
}

// LoadConfig reads a YAML config file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	buf, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// resolveCollation maps a sort item's collation name to a language tag.
func (cfg *Config) resolveCollation(name string) (string, error) {
	if name == DefaultCollationName {
		name = cfg.DefaultCollation
	}
	if name == "" {
		return "", nil
	}
	if _, err := language.Parse(name); err != nil {
		return "", common.NewError(common.InvalidPlanError, "unknown collation %q: %v", name, err)
	}
	return name, nil
}
