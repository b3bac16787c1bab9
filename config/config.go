// Package config loads the typed startup configuration for the indexing
// pipeline: where the collection registry and OWL ontology documents live,
// the file-list executor's concurrency and batch size, the ontology
// download timeouts, and the query expander's term budget. One typed
// struct, one YAML loader, one Normalize step — no flag or env-var parser.
package config

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/biohub/subindex/errs"
	"github.com/biohub/subindex/fileindex"
	"github.com/biohub/subindex/ontology"
	"github.com/biohub/subindex/registry"
)

// Defaults mirror the constants already hardcoded in ontology, fileindex
// and query; Normalize only fills a field left at its zero value,
// so a caller that sets a field explicitly is never second-guessed.
const (
	DefaultBatchSize       = 250
	DefaultConcurrency     = 8
	DefaultExpansionBudget = 100
	DefaultConnectTimeout  = 10 * time.Second
	DefaultReadTimeout     = 120 * time.Second
)

// OntologyConfig configures the OWL loader (ontology.Loader): a local path
// checked first, a URL fallback, and the class IRIs stripped from the
// built model.
type OntologyConfig struct {
	Path           string   `yaml:"path,omitempty"`
	URL            string   `yaml:"url,omitempty"`
	IgnoredClasses []string `yaml:"ignoredClasses,omitempty"`

	// ConnectTimeout/ReadTimeout override the 10s/120s defaults. Zero falls
	// back to the default in Normalize.
	ConnectTimeout time.Duration `yaml:"connectTimeout,omitempty"`
	ReadTimeout    time.Duration `yaml:"readTimeout,omitempty"`
}

// RegistrySource configures where the collection registry JSON document
// comes from: a local file path, matching registry.Source's file-backed
// implementations.
type RegistrySource struct {
	Path string `yaml:"path"`
}

// FileIndexConfig configures component C6's per-submission executor.
type FileIndexConfig struct {
	BatchSize   int `yaml:"batchSize,omitempty"`
	Concurrency int `yaml:"concurrency,omitempty"`
}

// QueryConfig configures component C10's query expander.
type QueryConfig struct {
	ExpansionBudget int `yaml:"expansionBudget,omitempty"`
}

// Config is the full typed startup configuration for the module.
type Config struct {
	Ontology  OntologyConfig  `yaml:"ontology"`
	Registry  RegistrySource  `yaml:"registry"`
	FileIndex FileIndexConfig `yaml:"fileIndex"`
	Query     QueryConfig     `yaml:"query"`
}

// Load reads and parses a YAML config document from path, then normalizes
// it.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewConfigError("config file", fmt.Errorf("reading %s: %w", path, err))
	}
	return LoadBytes(raw)
}

// LoadBytes parses a YAML config document from raw bytes, then normalizes
// it. Exported separately from Load so tests and embedders that already
// hold the document in memory don't need a temp file.
func LoadBytes(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errs.NewConfigError("config document", fmt.Errorf("parsing YAML: %w", err))
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config with every field at its normalized default; the
// registry path and ontology source are left empty since those have no
// sane default and must be supplied by the caller.
func Default() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills every zero-valued field with its documented default:
// batch size 250, executor concurrency 8, expansion budget 100, 10s/120s
// ontology timeouts. Safe to call more than once.
func (c *Config) Normalize() {
	if c.FileIndex.BatchSize <= 0 {
		c.FileIndex.BatchSize = DefaultBatchSize
	}
	if c.FileIndex.Concurrency <= 0 {
		c.FileIndex.Concurrency = DefaultConcurrency
	}
	if c.Query.ExpansionBudget <= 0 {
		c.Query.ExpansionBudget = DefaultExpansionBudget
	}
	if c.Ontology.ConnectTimeout <= 0 {
		c.Ontology.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Ontology.ReadTimeout <= 0 {
		c.Ontology.ReadTimeout = DefaultReadTimeout
	}
}

// Validate rejects a config that has been normalized but still lacks
// anything required to start the pipeline: a registry source and at least
// one of an ontology path or URL.
func (c *Config) Validate() error {
	if c.Registry.Path == "" {
		return errs.NewConfigError("registry.path", fmt.Errorf("no collection registry source configured"))
	}
	if c.Ontology.Path == "" && c.Ontology.URL == "" {
		return errs.NewConfigError("ontology", fmt.Errorf("neither a local path nor a download URL configured"))
	}
	return nil
}

// RegistrySourceValue builds the registry.Source this config names.
func (c *Config) RegistrySourceValue() registry.Source {
	return registry.FileSource(c.Registry.Path)
}

// OntologyLoader builds the ontology.Loader this config names, with an
// *http.Client constructed from the configured connect/read timeouts.
func (c *Config) OntologyLoader() ontology.Loader {
	dialer := &net.Dialer{Timeout: c.Ontology.ConnectTimeout}
	return ontology.Loader{
		Path:           c.Ontology.Path,
		URL:            c.Ontology.URL,
		IgnoredClasses: append([]string(nil), c.Ontology.IgnoredClasses...),
		HTTPClient: &http.Client{
			Timeout:   c.Ontology.ConnectTimeout + c.Ontology.ReadTimeout,
			Transport: &http.Transport{DialContext: dialer.DialContext},
		},
	}
}

// ApplyFileIndex copies the file-indexing executor settings onto ix.
func (c *Config) ApplyFileIndex(ix *fileindex.Indexer) {
	ix.BatchSize = c.FileIndex.BatchSize
	ix.Concurrency = c.FileIndex.Concurrency
}
