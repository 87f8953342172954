package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dmalone87/gatepipe/pipeline"
)

// PipelineConfig is the root structure for a pipeline definition.
type PipelineConfig struct {
	Name   string     `yaml:"name"`
	Stages []StageRef `yaml:"stages"`
}

// StageRef is a single stage entry: either a plain name or name + args.
// In YAML, a stage can be written as:
//
//	- triage
//	- name: gate
//	  args:
//	    prompt: "send summary?"
type StageRef struct {
	Name string         `yaml:"name"`
	Args map[string]any `yaml:"args"`
}

// UnmarshalYAML allows a stage to be a string (stage name only) or a struct.
func (s *StageRef) UnmarshalYAML(value *yaml.Node) error {
	var nameOnly string
	if err := value.Decode(&nameOnly); err == nil {
		s.Name = nameOnly
		return nil
	}
	type raw StageRef
	return value.Decode((*raw)(s))
}

// ParsePipelineConfig parses YAML bytes into a single PipelineConfig.
func ParsePipelineConfig(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	for i, ref := range cfg.Stages {
		if ref.Name == "" {
			return nil, fmt.Errorf("stage %d: name required", i)
		}
	}
	return &cfg, nil
}

// Pipeline converts the definition to the engine's ordered stage-call list.
func (c *PipelineConfig) Pipeline() pipeline.Pipeline {
	pl := make(pipeline.Pipeline, 0, len(c.Stages))
	for _, ref := range c.Stages {
		pl = append(pl, pipeline.StageCall{Name: ref.Name, Args: ref.Args})
	}
	return pl
}

// MultiPipelineConfig is the root structure for a file defining multiple
// pipelines under a top-level "pipelines" map.
type MultiPipelineConfig struct {
	Pipelines map[string]PipelineConfig `yaml:"pipelines"`
}

// ParseMultiPipelineConfig parses YAML with a "pipelines" map from name to
// pipeline config. Entries with an empty Name take the map key.
func ParseMultiPipelineConfig(data []byte) (*MultiPipelineConfig, error) {
	var cfg MultiPipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	for name, p := range cfg.Pipelines {
		if p.Name == "" {
			p.Name = name
			cfg.Pipelines[name] = p
		}
	}
	return &cfg, nil
}

// Validate checks every referenced stage name against the registry,
// surfacing unknown names before a run starts.
func (c *PipelineConfig) Validate(reg *pipeline.Registry) error {
	for i, ref := range c.Stages {
		if _, err := reg.Resolve(pipeline.StageCall{Name: ref.Name, Args: ref.Args}); err != nil {
			return fmt.Errorf("stage %d: %w", i, err)
		}
	}
	return nil
}
