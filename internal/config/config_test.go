package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "koan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
home: /tmp/koan-test
projects:
  - name: blog
    path: /srv/blog
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Executor.Command != "claude" {
		t.Errorf("Executor.Command = %q, want claude", cfg.Executor.Command)
	}
	if cfg.Loop.ContemplativeChance != DefaultContemplative {
		t.Errorf("ContemplativeChance = %v, want %v", cfg.Loop.ContemplativeChance, DefaultContemplative)
	}
	if cfg.Loop.SessionTokenBudget != DefaultSessionTokenBudget {
		t.Errorf("SessionTokenBudget = %d", cfg.Loop.SessionTokenBudget)
	}
	if cfg.Loop.IntervalDuration() != DefaultInterval {
		t.Errorf("IntervalDuration = %v, want %v", cfg.Loop.IntervalDuration(), DefaultInterval)
	}
	if cfg.Intake.AckMarker != "eyes" {
		t.Errorf("AckMarker = %q, want eyes", cfg.Intake.AckMarker)
	}
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfig(t, `
home: /tmp/koan-test
projects:
  - name: blog
    path: /srv/blog
loop:
  interval: 5m
  pause_cooldown: 90m
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Loop.IntervalDuration() != 5*time.Minute {
		t.Errorf("IntervalDuration = %v", cfg.Loop.IntervalDuration())
	}
	if cfg.Loop.PauseCooldownDuration() != 90*time.Minute {
		t.Errorf("PauseCooldownDuration = %v", cfg.Loop.PauseCooldownDuration())
	}
}

func TestValidateRejectsEmptyProjects(t *testing.T) {
	err := Validate(&Config{Home: "/tmp/x"})
	if err == nil || !strings.Contains(err.Error(), "at least one project") {
		t.Errorf("Validate = %v", err)
	}
}

func TestValidateRejectsTooManyProjects(t *testing.T) {
	cfg := &Config{Home: "/tmp/x"}
	for i := 0; i < MaxProjects+1; i++ {
		cfg.Projects = append(cfg.Projects, Project{Name: string(rune('a' + i)), Path: "/srv"})
	}
	if err := Validate(cfg); err == nil {
		t.Error("expected error for too many projects")
	}
}

func TestValidateRejectsDuplicateNames(t *testing.T) {
	cfg := &Config{Home: "/tmp/x", Projects: []Project{
		{Name: "blog", Path: "/a"},
		{Name: "blog", Path: "/b"},
	}}
	if err := Validate(cfg); err == nil {
		t.Error("expected error for duplicate project names")
	}
}

func TestValidateRejectsBadChance(t *testing.T) {
	cfg := &Config{Home: "/tmp/x", Projects: []Project{{Name: "blog", Path: "/a"}}}
	cfg.Loop.ContemplativeChance = 1.5
	if err := Validate(cfg); err == nil {
		t.Error("expected error for chance out of range")
	}
}

func TestFindProjectUnknownIsError(t *testing.T) {
	cfg := &Config{Projects: []Project{{Name: "blog", Path: "/a"}}}
	if _, err := cfg.FindProject("ghost"); err == nil {
		t.Error("expected error for unknown project")
	}
	p, err := cfg.FindProject("blog")
	if err != nil || p.Path != "/a" {
		t.Errorf("FindProject(blog) = %+v, %v", p, err)
	}
}

func TestRotationProjectsHonorsRotateFlag(t *testing.T) {
	no := false
	cfg := &Config{Projects: []Project{
		{Name: "blog", Path: "/a"},
		{Name: "archive", Path: "/b", Rotate: &no},
		{Name: "tracker", Path: "/c"},
	}}
	got := cfg.RotationProjects()
	if len(got) != 2 {
		t.Fatalf("rotation set = %d, want 2", len(got))
	}
	if got[0].Name != "blog" || got[1].Name != "tracker" {
		t.Errorf("rotation set = %v", got)
	}
}

func TestStatePaths(t *testing.T) {
	cfg := &Config{Home: "/tmp/koan-home"}
	if cfg.QueuePath() != filepath.Join("/tmp/koan-home", "missions.md") {
		t.Errorf("QueuePath = %q", cfg.QueuePath())
	}
	if cfg.StopMarkerPath() != filepath.Join("/tmp/koan-home", "stop") {
		t.Errorf("StopMarkerPath = %q", cfg.StopMarkerPath())
	}
}
