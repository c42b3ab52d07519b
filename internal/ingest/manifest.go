package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"codeatlas/internal/model"
)

type pyProject struct {
	Project struct {
		Name         string   `toml:"name"`
		Version      string   `toml:"version"`
		Description  string   `toml:"description"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name         string                 `toml:"name"`
			Version      string                 `toml:"version"`
			Description  string                 `toml:"description"`
			Dependencies map[string]interface{} `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

type condaEnv struct {
	Name string `yaml:"name"`
	// Entries are either plain package strings or nested maps (pip lists);
	// only the strings are kept.
	Dependencies []interface{} `yaml:"dependencies"`
}

// ProbeManifest reads the repo's packaging metadata if any is present.
// pyproject.toml wins over environment.yml; neither existing yields
// (nil, nil).
func ProbeManifest(root string) (*model.ProjectFacts, error) {
	if data, err := os.ReadFile(filepath.Join(root, "pyproject.toml")); err == nil {
		return parsePyProject(data)
	}
	for _, name := range []string{"environment.yml", "environment.yaml"} {
		if data, err := os.ReadFile(filepath.Join(root, name)); err == nil {
			return parseCondaEnv(data, name)
		}
	}
	return nil, nil
}

func parsePyProject(data []byte) (*model.ProjectFacts, error) {
	var pp pyProject
	if err := toml.Unmarshal(data, &pp); err != nil {
		return nil, fmt.Errorf("malformed pyproject.toml: %w", err)
	}
	facts := &model.ProjectFacts{
		Name:         pp.Project.Name,
		Version:      pp.Project.Version,
		Description:  pp.Project.Description,
		Dependencies: pp.Project.Dependencies,
		Source:       "pyproject.toml",
	}
	if facts.Name == "" && pp.Tool.Poetry.Name != "" {
		facts.Name = pp.Tool.Poetry.Name
		facts.Version = pp.Tool.Poetry.Version
		facts.Description = pp.Tool.Poetry.Description
		for dep := range pp.Tool.Poetry.Dependencies {
			if dep == "python" {
				continue
			}
			facts.Dependencies = append(facts.Dependencies, dep)
		}
		sort.Strings(facts.Dependencies)
	}
	return facts, nil
}

func parseCondaEnv(data []byte, source string) (*model.ProjectFacts, error) {
	var env condaEnv
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed %s: %w", source, err)
	}
	facts := &model.ProjectFacts{Name: env.Name, Source: source}
	for _, dep := range env.Dependencies {
		if s, ok := dep.(string); ok {
			facts.Dependencies = append(facts.Dependencies, s)
		}
	}
	return facts, nil
}
