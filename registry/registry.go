// Package registry loads and validates the suite configuration: which
// checks run, grouped into named suites, with optional per-check overrides.
package registry

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/aiventory/invoqa/checks"
)

// Duration wraps time.Duration so suite files can spell timeouts as "30s".
type Duration time.Duration

// UnmarshalYAML parses Go duration syntax.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// CheckEntry is one configured check inside a suite.
type CheckEntry struct {
	ID          string   `yaml:"id"`
	MinAccuracy float64  `yaml:"min_accuracy,omitempty"` // 0 = use harness default
	Timeout     Duration `yaml:"timeout,omitempty"`      // 0 = use harness default
}

// Suite is a named group of checks.
type Suite struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Checks      []CheckEntry `yaml:"checks"`
}

type suiteFile struct {
	Suites []Suite `yaml:"suites"`
}

// Registry holds the validated suite configuration.
type Registry struct {
	suites []Suite
	log    logrus.FieldLogger
}

// Config contains registry construction parameters.
type Config struct {
	Log       logrus.FieldLogger
	SuiteFile string // Empty for the built-in default of all checks
}

// NewRegistry creates a registry from a suite file, or from the built-in
// default configuration (every known check in one suite) when no file is
// given.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}

	r := &Registry{log: cfg.Log}
	if cfg.SuiteFile == "" {
		r.suites = []Suite{defaultSuite()}
		cfg.Log.Debug("registry using built-in default suite")
		return r, nil
	}

	if err := r.loadSuites(cfg.SuiteFile); err != nil {
		return nil, fmt.Errorf("failed to load suite config: %w", err)
	}
	cfg.Log.WithField("suites", len(r.suites)).Debug("registry loaded")
	return r, nil
}

func defaultSuite() Suite {
	all := checks.All()
	entries := make([]CheckEntry, 0, len(all))
	for _, c := range all {
		entries = append(entries, CheckEntry{ID: c.ID()})
	}
	return Suite{
		Name:        "all",
		Description: "every known check",
		Checks:      entries,
	}
}

func (r *Registry) loadSuites(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var file suiteFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(file.Suites) == 0 {
		return fmt.Errorf("%s defines no suites", path)
	}

	seen := make(map[string]bool, len(file.Suites))
	for _, suite := range file.Suites {
		if suite.Name == "" {
			return fmt.Errorf("%s contains a suite without a name", path)
		}
		if seen[suite.Name] {
			return fmt.Errorf("duplicate suite %q in %s", suite.Name, path)
		}
		seen[suite.Name] = true

		if len(suite.Checks) == 0 {
			return fmt.Errorf("suite %q defines no checks", suite.Name)
		}
		for _, entry := range suite.Checks {
			if _, ok := checks.ByID(entry.ID); !ok {
				return fmt.Errorf("suite %q references unknown check %q", suite.Name, entry.ID)
			}
			if entry.MinAccuracy < 0 || entry.MinAccuracy > 1 {
				return fmt.Errorf("suite %q check %q: min_accuracy %v outside [0,1]", suite.Name, entry.ID, entry.MinAccuracy)
			}
		}
	}

	r.suites = file.Suites
	return nil
}

// Suites returns every configured suite.
func (r *Registry) Suites() []Suite {
	return r.suites
}

// Suite returns the named suite.
func (r *Registry) Suite(name string) (Suite, error) {
	for _, s := range r.suites {
		if s.Name == name {
			return s, nil
		}
	}
	return Suite{}, fmt.Errorf("unknown suite %q", name)
}
