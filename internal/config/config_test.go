package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:    HTTPConfig{Port: 8080},
		Elastic: ElasticConfig{Addr: "http://localhost:9200"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_UnknownRelaxationStep(t *testing.T) {
	cfg := validConfig()
	cfg.Search.RelaxationOrder = []string{"keywords", "enrollment"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown relaxation step")
	}
	expected := `search.relaxation_order: unknown step "enrollment"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_DuplicateRelaxationStep(t *testing.T) {
	cfg := validConfig()
	cfg.Search.RelaxationOrder = []string{"phase", "phase"}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for duplicate relaxation step")
	}
}

func TestValidate_ThresholdAboveWindow(t *testing.T) {
	cfg := validConfig()
	cfg.Search.SufficiencyThreshold = 500
	cfg.Search.CandidateWindow = 100

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for threshold above candidate window")
	}
	if !strings.Contains(err.Error(), "sufficiency_threshold") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_MissingElasticAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Elastic.Addr = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing elastic.addr")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{Port: 8080},
		Elastic: ElasticConfig{Addr: "http://localhost:9200"},
	}
	cfg.ApplyDefaults()

	if cfg.Search.SufficiencyThreshold != 5 {
		t.Errorf("SufficiencyThreshold = %d, want 5", cfg.Search.SufficiencyThreshold)
	}
	if cfg.Search.CandidateWindow != 100 {
		t.Errorf("CandidateWindow = %d, want 100", cfg.Search.CandidateWindow)
	}
	if cfg.Extraction.CacheTTLSec != 600 {
		t.Errorf("CacheTTLSec = %d, want 600", cfg.Extraction.CacheTTLSec)
	}
	if len(cfg.Search.RelaxationOrder) != 8 || cfg.Search.RelaxationOrder[0] != "keywords" {
		t.Errorf("RelaxationOrder = %v", cfg.Search.RelaxationOrder)
	}
	if cfg.Search.Boosts.BriefTitle != 3 {
		t.Errorf("Boosts.BriefTitle = %v, want 3", cfg.Search.Boosts.BriefTitle)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TRIALSEARCH_TEST_KEY", "sk-test")

	data := expandEnvVars([]byte("api_key: ${TRIALSEARCH_TEST_KEY}\naddr: ${TRIALSEARCH_TEST_ADDR:-http://localhost:9200}"))
	got := string(data)
	if !strings.Contains(got, "sk-test") {
		t.Errorf("env var not expanded: %q", got)
	}
	if !strings.Contains(got, "http://localhost:9200") {
		t.Errorf("default not applied: %q", got)
	}
}
