package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderSimpleVars(t *testing.T) {
	out, err := Render("Work on {{project}} at {{project_path}}.", Vars{
		"project":      "blog",
		"project_path": "/srv/blog",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "Work on blog at /srv/blog."
	if out != want {
		t.Errorf("Render = %q, want %q", out, want)
	}
}

func TestRenderMissingVar(t *testing.T) {
	_, err := Render("Mission: {{mission}}", Vars{})
	if err == nil {
		t.Fatal("expected error for missing variable")
	}
	if !strings.Contains(err.Error(), "mission") {
		t.Errorf("error should name the missing variable: %v", err)
	}
}

func TestRenderConditionals(t *testing.T) {
	tmpl := "Base.{{#if notes}} Notes: {{notes}}.{{/if}}"

	out, err := Render(tmpl, Vars{"notes": "be careful"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "Base. Notes: be careful." {
		t.Errorf("Render with value = %q", out)
	}

	out, err = Render(tmpl, Vars{"notes": ""})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "Base." {
		t.Errorf("Render with empty value = %q", out)
	}
}

func TestRenderUnclosedConditional(t *testing.T) {
	if _, err := Render("{{#if x}}never closed", Vars{"x": "1"}); err == nil {
		t.Error("expected error for unclosed conditional")
	}
}

func TestLoadBuiltins(t *testing.T) {
	for _, name := range []string{"mission.md", "review.md", "implement.md", "deep.md", "contemplative.md"} {
		tmpl, err := Load(name, "")
		if err != nil {
			t.Errorf("Load(%q): %v", name, err)
			continue
		}
		if tmpl == "" {
			t.Errorf("Load(%q) returned empty template", name)
		}
	}
	if _, err := Load("nope.md", ""); err == nil {
		t.Error("Load of unknown template should fail")
	}
}

func TestLoadProjectOverride(t *testing.T) {
	projectPath := t.TempDir()
	dir := filepath.Join(projectPath, ".koan", "templates")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mission.md"), []byte("custom {{mission}}"), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	tmpl, err := Load("mission.md", projectPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tmpl != "custom {{mission}}" {
		t.Errorf("override not honored: %q", tmpl)
	}
}
