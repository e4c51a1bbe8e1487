package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/episim/episim/sim/agents"
)

// LoadAgents reads an agent-model scenario file. Keys that are absent keep their
// DefaultConfig values; unknown keys are an error.
func LoadAgents(path string) (agents.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return agents.Config{}, fmt.Errorf("reading agent scenario: %w", err)
	}
	return ParseAgents(data)
}

// ParseAgents decodes an agent-model scenario over DefaultConfig and validates it.
func ParseAgents(data []byte) (agents.Config, error) {
	cfg := agents.DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return agents.Config{}, fmt.Errorf("parsing agent scenario: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return agents.Config{}, fmt.Errorf("invalid agent scenario: %w", err)
	}
	return cfg, nil
}
