package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/kernel"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Kernel.Transport != TransportLocal {
		t.Errorf("Kernel.Transport = %s, want %s", cfg.Kernel.Transport, TransportLocal)
	}
	if cfg.Kernel.CubitPath != kernel.DefaultCubitPath {
		t.Errorf("Kernel.CubitPath = %s, want %s", cfg.Kernel.CubitPath, kernel.DefaultCubitPath)
	}
	if !cfg.HistoryEnabled() {
		t.Error("history should be enabled by default")
	}
	if cfg.WatchDebounce() != DefaultWatchDebounce {
		t.Errorf("WatchDebounce() = %s, want %s", cfg.WatchDebounce(), DefaultWatchDebounce)
	}

	// Options should match the domain defaults
	if got, want := cfg.Options(), domain.DefaultOptions(); got != want {
		t.Errorf("Options() = %+v, want %+v", got, want)
	}
}

func TestOptionsOverrides(t *testing.T) {
	off := false
	cfg := DefaultConfig()
	cfg.Conversion = ConversionConfig{
		H5MFilename:    "out/model.h5m",
		MergeTolerance: 1e-3,
		MakeWatertight: &off,
		Imprint:        &off,
		Graveyard:      1000,
	}

	opts := cfg.Options()
	if opts.H5MFilename != "out/model.h5m" {
		t.Errorf("H5MFilename = %s", opts.H5MFilename)
	}
	if opts.MergeTolerance != 1e-3 {
		t.Errorf("MergeTolerance = %g, want 1e-3", opts.MergeTolerance)
	}
	if opts.MakeWatertight || opts.Imprint {
		t.Error("explicit false should disable watertight and imprint")
	}
	if opts.FacetingTolerance != domain.DefaultFacetingTolerance {
		t.Errorf("FacetingTolerance = %g, want default", opts.FacetingTolerance)
	}
	if opts.Graveyard != 1000 {
		t.Errorf("Graveyard = %g, want 1000", opts.Graveyard)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"sim transport", func(c *Config) { c.Kernel.Transport = TransportSim }, false},
		{"ssh without host", func(c *Config) { c.Kernel.Transport = TransportSSH }, true},
		{"ssh with host", func(c *Config) {
			c.Kernel.Transport = TransportSSH
			c.Kernel.SSH.Host = "cubit-ws"
		}, false},
		{"unknown transport", func(c *Config) { c.Kernel.Transport = "carrier-pigeon" }, true},
		{"bad output name", func(c *Config) { c.Conversion.H5MFilename = "model.vtk" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	// Create temp directory
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Create and save config
	cfg := DefaultConfig()
	cfg.Kernel.Transport = TransportSSH
	cfg.Kernel.SSH.Host = "cubit-ws"
	cfg.Kernel.SSH.Password = "hunter2"
	cfg.Conversion.Graveyard = 500
	debounce := Duration(2 * time.Second)
	cfg.Watch.Debounce = &debounce

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Error("secrets must not be written to the config file")
	}

	// Load config
	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}

	// Verify values
	if loaded.Kernel.Transport != TransportSSH {
		t.Errorf("Transport = %s, want %s", loaded.Kernel.Transport, TransportSSH)
	}
	if loaded.Kernel.SSH.Host != "cubit-ws" {
		t.Errorf("SSH.Host = %s, want cubit-ws", loaded.Kernel.SSH.Host)
	}
	if loaded.Conversion.Graveyard != 500 {
		t.Errorf("Graveyard = %g, want 500", loaded.Conversion.Graveyard)
	}
	if loaded.WatchDebounce() != 2*time.Second {
		t.Errorf("WatchDebounce() = %s, want 2s", loaded.WatchDebounce())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := `
kernel:
  transport: local
  cubit_path: /opt/cubit/bin/
conversion:
  merge_tolerance: 0.001
  imprint: true
history:
  path: /var/lib/cadtoh5m/runs.db
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CADTOH5M_KERNEL_TRANSPORT", "sim")
	t.Setenv("CADTOH5M_IMPRINT", "false")
	t.Setenv("CADTOH5M_SSH_PASSWORD", "from-env")
	t.Setenv("CADTOH5M_WATCH_DEBOUNCE", "3s")

	cfg, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}

	// env beats file
	if cfg.Kernel.Transport != TransportSim {
		t.Errorf("Transport = %s, want sim", cfg.Kernel.Transport)
	}
	if cfg.Options().Imprint {
		t.Error("CADTOH5M_IMPRINT=false should disable imprint")
	}
	// file beats defaults
	if cfg.Kernel.CubitPath != "/opt/cubit/bin/" {
		t.Errorf("CubitPath = %s", cfg.Kernel.CubitPath)
	}
	if cfg.Options().MergeTolerance != 0.001 {
		t.Errorf("MergeTolerance = %g, want 0.001", cfg.Options().MergeTolerance)
	}
	if cfg.History.Path != "/var/lib/cadtoh5m/runs.db" {
		t.Errorf("History.Path = %s", cfg.History.Path)
	}
	// env-only secret
	if cfg.Kernel.SSH.Password != "from-env" {
		t.Errorf("SSH.Password = %q, want from-env", cfg.Kernel.SSH.Password)
	}
	if cfg.WatchDebounce() != 3*time.Second {
		t.Errorf("WatchDebounce() = %s, want 3s", cfg.WatchDebounce())
	}
}

func TestLoadBadEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("version: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CADTOH5M_MERGE_TOLERANCE", "tiny")

	if _, _, err := LoadFromPath(configPath); err == nil {
		t.Error("expected error for unparsable environment value")
	}
}

func TestFindConfigPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	workDir := t.TempDir()
	testChdir(t, workDir)

	cfg := DefaultConfig()
	if found := FindConfigPath(""); found != "" {
		t.Fatalf("FindConfigPath() = %s, want none", found)
	}

	if err := cfg.Save(filepath.Join(workDir, ConfigFileName)); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if found := FindConfigPath(""); filepath.Base(found) != ConfigFileName {
		t.Errorf("FindConfigPath() = %s, want working directory config", found)
	}

	// a config beside the job file beats the working directory
	jobDir := t.TempDir()
	besideJob := filepath.Join(jobDir, ConfigFileName)
	if err := cfg.Save(besideJob); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if found := FindConfigPath(filepath.Join(jobDir, "job.yaml")); found != besideJob {
		t.Errorf("FindConfigPath(job) = %s, want %s", found, besideJob)
	}

	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	if found := FindConfigPath(""); found == "" {
		t.Error("FindConfigPath() should fall back when env path doesn't exist")
	}

	explicit := filepath.Join(t.TempDir(), "explicit.yaml")
	if err := cfg.Save(explicit); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	t.Setenv(EnvConfigPath, explicit)
	if found := FindConfigPath(filepath.Join(jobDir, "job.yaml")); found != explicit {
		t.Errorf("FindConfigPath() = %s, want %s", found, explicit)
	}
}

func TestSearchPathsSkipsRepeats(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	got := SearchPaths("job.yaml")
	want := []string{ConfigFileName, filepath.Join("/xdg", ConfigDirName, "config.yaml"), filepath.Join("/etc", ConfigDirName, "config.yaml")}
	if len(got) != len(want) {
		t.Fatalf("SearchPaths() = %v, want %v", got, want)
	}
	for i := range want {
		if filepath.Clean(got[i]) != filepath.Clean(want[i]) {
			t.Errorf("SearchPaths()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	// Test YAML marshaling
	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}

	var parsed Duration
	if err := parsed.UnmarshalText([]byte("90s")); err != nil {
		t.Fatalf("UnmarshalText() error: %v", err)
	}
	if parsed.Duration() != 90*time.Second {
		t.Errorf("UnmarshalText(90s) = %s", parsed.Duration())
	}
}

// testChdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+) on older toolchains.
func testChdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
