package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leoprotocol/leoscore/internal/catalog"
	"github.com/leoprotocol/leoscore/internal/denylist"
	"github.com/leoprotocol/leoscore/internal/policy"
)

func TestRunInit_DefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	initDir = ""
	initForce = false

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	configDir := filepath.Join(tmpDir, ".leoscore")

	policyPath := filepath.Join(configDir, "policy.yaml")
	data, err := os.ReadFile(policyPath)
	if err != nil {
		t.Fatalf("policy.yaml not created: %v", err)
	}
	if !strings.Contains(string(data), "stats_failure") {
		t.Error("policy.yaml missing stats_failure")
	}
	if _, err := policy.LoadConfig(policyPath); err != nil {
		t.Errorf("generated policy.yaml does not load: %v", err)
	}

	denylistPath := filepath.Join(configDir, "denylist.yaml")
	data, err = os.ReadFile(denylistPath)
	if err != nil {
		t.Fatalf("denylist.yaml not created: %v", err)
	}
	if !strings.Contains(string(data), "critical_paths:") {
		t.Error("denylist.yaml missing critical_paths section")
	}
	dl, err := denylist.Load(denylistPath)
	if err != nil {
		t.Fatalf("generated denylist.yaml does not load: %v", err)
	}
	if hit, _ := dl.ContainsSensitive("rotate the auth token"); !hit {
		t.Error("generated denylist lost the default keywords")
	}

	c, err := catalog.LoadFile(filepath.Join(configDir, "patterns.yaml"))
	if err != nil {
		t.Fatalf("generated patterns.yaml does not load: %v", err)
	}
	if c.Len() != catalog.Default().Len() {
		t.Errorf("expected %d active patterns, got %d", catalog.Default().Len(), c.Len())
	}
}

func TestRunInit_NoOverwriteWithoutForce(t *testing.T) {
	configDir := t.TempDir()

	sentinel := "# sentinel content\n"
	policyPath := filepath.Join(configDir, "policy.yaml")
	if err := os.WriteFile(policyPath, []byte(sentinel), 0o644); err != nil {
		t.Fatal(err)
	}

	initDir = configDir
	initForce = false
	t.Cleanup(func() { initDir = "" })

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, _ := os.ReadFile(policyPath)
	if string(data) != sentinel {
		t.Error("policy.yaml was overwritten without --force")
	}
	if _, err := os.Stat(filepath.Join(configDir, "denylist.yaml")); err != nil {
		t.Error("missing denylist.yaml should still be created")
	}
}

func TestRunInit_ForceOverwrites(t *testing.T) {
	configDir := t.TempDir()

	sentinel := "# sentinel content\n"
	policyPath := filepath.Join(configDir, "policy.yaml")
	if err := os.WriteFile(policyPath, []byte(sentinel), 0o644); err != nil {
		t.Fatal(err)
	}

	initDir = configDir
	initForce = true
	t.Cleanup(func() { initDir, initForce = "", false })

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, _ := os.ReadFile(policyPath)
	if string(data) == sentinel {
		t.Error("policy.yaml was NOT overwritten with --force")
	}
}

func TestInitConfigDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	initDir = ""
	got, err := initConfigDir()
	if err != nil {
		t.Fatalf("initConfigDir: %v", err)
	}
	if want := filepath.Join(tmpDir, ".leoscore"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	initDir = "/srv/leoscore"
	t.Cleanup(func() { initDir = "" })
	if got, _ := initConfigDir(); got != "/srv/leoscore" {
		t.Errorf("expected --dir to win, got %q", got)
	}
}

func TestRunInitPolicy(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	if err := runInitPolicy(nil, nil); err != nil {
		t.Fatalf("runInitPolicy: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, ".leoscore", "policy.yaml")); err != nil {
		t.Fatalf("policy.yaml not created: %v", err)
	}
	err := runInitPolicy(nil, nil)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected already-exists error, got %v", err)
	}
}

func TestWriteIfMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.txt")

	initForce = false
	wrote, err := writeIfMissing(path, "hello")
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if !wrote {
		t.Error("first write should return true")
	}

	wrote, err = writeIfMissing(path, "world")
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if wrote {
		t.Error("second write should return false without force")
	}

	initForce = true
	t.Cleanup(func() { initForce = false })
	if wrote, _ := writeIfMissing(path, "world"); !wrote {
		t.Error("write with force should return true")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "world" {
		t.Errorf("expected overwritten content, got %q", data)
	}
}
