package onglet

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/onglet/internal/answer"
	"github.com/hazyhaar/onglet/internal/browser"
	"github.com/hazyhaar/onglet/internal/snapshot"
)

// Config is the full service configuration. Every field has a working
// default; an empty Config yields a usable in-memory service.
type Config struct {
	// Listen is the HTTP listen address. Default: ":8087".
	Listen string `yaml:"listen"`

	// DatabasePath is the sqlite file holding the conversation log and the
	// snapshot cache. Empty disables persistence.
	DatabasePath string `yaml:"database_path"`

	// AnswerEndpoint is the URL of the remote answering proxy. Empty
	// disables the remote path; every question is answered locally.
	AnswerEndpoint string `yaml:"answer_endpoint"`

	// KeywordTopK is how many tabs a keyword-only search returns. Default: 1.
	KeywordTopK int `yaml:"keyword_top_k"`

	Browser   browser.Config           `yaml:"browser"`
	Resolver  snapshot.ResolverConfig  `yaml:"resolver"`
	Scheduler snapshot.SchedulerConfig `yaml:"scheduler"`
	Answer    answer.Config            `yaml:"answer"`
}

func (c *Config) defaults() {
	if c.Listen == "" {
		c.Listen = ":8087"
	}
	if c.KeywordTopK <= 0 {
		c.KeywordTopK = 1
	}
	if c.Answer.SnippetLen <= 0 {
		c.Answer.SnippetLen = 100
	}
}

// LoadConfigFile reads and validates a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.defaults()
	return &cfg, nil
}
