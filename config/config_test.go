package config

import (
	"testing"
	"time"

	"github.com/biohub/subindex/fileindex"
)

const sampleYAML = `
registry:
  path: /etc/subindex/registry.json
ontology:
  path: /var/lib/subindex/efo.owl
  url: https://example.org/efo.owl
  ignoredClasses:
    - http://purl.obolibrary.org/obo/BFO_0000001
fileIndex:
  batchSize: 500
  concurrency: 16
query:
  expansionBudget: 40
`

func TestLoadBytesAppliesExplicitValues(t *testing.T) {
	cfg, err := LoadBytes([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if cfg.Registry.Path != "/etc/subindex/registry.json" {
		t.Fatalf("registry path = %q", cfg.Registry.Path)
	}
	if cfg.FileIndex.BatchSize != 500 || cfg.FileIndex.Concurrency != 16 {
		t.Fatalf("fileIndex = %+v", cfg.FileIndex)
	}
	if cfg.Query.ExpansionBudget != 40 {
		t.Fatalf("expansionBudget = %d, want 40", cfg.Query.ExpansionBudget)
	}
	if cfg.Ontology.ConnectTimeout != DefaultConnectTimeout || cfg.Ontology.ReadTimeout != DefaultReadTimeout {
		t.Fatalf("ontology timeouts = %+v, want defaults", cfg.Ontology)
	}
}

func TestNormalizeFillsZeroValuesWithDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Normalize()
	if cfg.FileIndex.BatchSize != DefaultBatchSize {
		t.Fatalf("batchSize = %d, want %d", cfg.FileIndex.BatchSize, DefaultBatchSize)
	}
	if cfg.FileIndex.Concurrency != DefaultConcurrency {
		t.Fatalf("concurrency = %d, want %d", cfg.FileIndex.Concurrency, DefaultConcurrency)
	}
	if cfg.Query.ExpansionBudget != DefaultExpansionBudget {
		t.Fatalf("expansionBudget = %d, want %d", cfg.Query.ExpansionBudget, DefaultExpansionBudget)
	}
}

func TestNormalizeNeverOverridesExplicitValues(t *testing.T) {
	cfg := &Config{FileIndex: FileIndexConfig{BatchSize: 10, Concurrency: 2}}
	cfg.Normalize()
	if cfg.FileIndex.BatchSize != 10 || cfg.FileIndex.Concurrency != 2 {
		t.Fatalf("Normalize overrode explicit values: %+v", cfg.FileIndex)
	}
}

func TestValidateRejectsMissingRegistryPath(t *testing.T) {
	cfg := Default()
	cfg.Ontology.URL = "https://example.org/efo.owl"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing registry path")
	}
}

func TestValidateRejectsMissingOntologySource(t *testing.T) {
	cfg := Default()
	cfg.Registry.Path = "/etc/subindex/registry.json"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing ontology path/url")
	}
}

func TestValidatePassesWithRegistryAndOntologyConfigured(t *testing.T) {
	cfg := Default()
	cfg.Registry.Path = "/etc/subindex/registry.json"
	cfg.Ontology.URL = "https://example.org/efo.owl"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestOntologyLoaderCarriesTimeoutsAndFields(t *testing.T) {
	cfg, err := LoadBytes([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	loader := cfg.OntologyLoader()
	if loader.Path != cfg.Ontology.Path || loader.URL != cfg.Ontology.URL {
		t.Fatalf("loader = %+v, want path/url to match config", loader)
	}
	if len(loader.IgnoredClasses) != 1 {
		t.Fatalf("ignoredClasses = %v", loader.IgnoredClasses)
	}
	if loader.HTTPClient == nil || loader.HTTPClient.Timeout != DefaultConnectTimeout+DefaultReadTimeout {
		t.Fatalf("http client timeout = %v", loader.HTTPClient)
	}
}

func TestRegistrySourceValueReadsConfiguredPath(t *testing.T) {
	cfg, err := LoadBytes([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	src := cfg.RegistrySourceValue()
	if _, err := src.Read(); err == nil {
		t.Fatal("expected a read error for a nonexistent path in this test environment")
	}
}

func TestApplyFileIndexCopiesSettings(t *testing.T) {
	cfg, err := LoadBytes([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	target := &fileindex.Indexer{}
	cfg.ApplyFileIndex(target)
	if target.BatchSize != 500 || target.Concurrency != 16 {
		t.Fatalf("fileindex.Indexer = %+v", target)
	}
}

func TestDefaultLeavesSourcesEmpty(t *testing.T) {
	cfg := Default()
	if cfg.Registry.Path != "" || cfg.Ontology.Path != "" || cfg.Ontology.URL != "" {
		t.Fatalf("Default should leave sources unset, got %+v", cfg)
	}
	if time.Duration(cfg.Ontology.ConnectTimeout) != DefaultConnectTimeout {
		t.Fatalf("connect timeout = %v", cfg.Ontology.ConnectTimeout)
	}
}
