package config

import "fmt"

// MaxProjects bounds the project set for a run session.
const MaxProjects = 5

// Validate checks structural invariants of the configuration. Violations are
// configuration errors: they are surfaced immediately and the loop does not
// start.
func Validate(cfg *Config) error {
	if len(cfg.Projects) == 0 {
		return fmt.Errorf("config: at least one project is required")
	}
	if len(cfg.Projects) > MaxProjects {
		return fmt.Errorf("config: %d projects configured, maximum is %d", len(cfg.Projects), MaxProjects)
	}

	seen := make(map[string]bool, len(cfg.Projects))
	for i, p := range cfg.Projects {
		if p.Name == "" {
			return fmt.Errorf("config: project %d has no name", i)
		}
		if p.Path == "" {
			return fmt.Errorf("config: project %q has no path", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("config: duplicate project name %q", p.Name)
		}
		seen[p.Name] = true
	}

	if c := cfg.Loop.ContemplativeChance; c < 0 || c > 1 {
		return fmt.Errorf("config: contemplative_chance %v out of range [0,1]", c)
	}
	if cfg.Loop.MaxIterations < 0 {
		return fmt.Errorf("config: max_iterations must not be negative")
	}
	return nil
}

// FindProject returns the project with the given name, or an error naming it
// as a configuration problem. A mission referencing an unknown project must
// stop the operator immediately rather than stall silently.
func (c *Config) FindProject(name string) (*Project, error) {
	for i := range c.Projects {
		if c.Projects[i].Name == name {
			return &c.Projects[i], nil
		}
	}
	return nil, fmt.Errorf("config: mission references unknown project %q", name)
}

// RotationProjects returns the projects eligible for round-robin selection,
// in configured order.
func (c *Config) RotationProjects() []Project {
	var out []Project
	for _, p := range c.Projects {
		if p.Rotatable() {
			out = append(out, p)
		}
	}
	return out
}
