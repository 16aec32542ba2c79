package config

import "testing"

func TestNew_Defaults(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvDataDir, "")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.LogLevel() != DefaultLogLevel {
		t.Errorf("LogLevel() = %s, want %s", cfg.LogLevel(), DefaultLogLevel)
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPort, "9100")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvDataDir, "/tmp/cutroom-test")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Port() != 9100 {
		t.Errorf("Port() = %d, want 9100", cfg.Port())
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("LogLevel() = %s, want debug", cfg.LogLevel())
	}
	if cfg.DataDir() != "/tmp/cutroom-test" {
		t.Errorf("DataDir() = %s, want /tmp/cutroom-test", cfg.DataDir())
	}
	if cfg.DBPath() != "/tmp/cutroom-test/"+DBFilename {
		t.Errorf("DBPath() = %s", cfg.DBPath())
	}
}

func TestNew_InvalidPort(t *testing.T) {
	tests := []string{"notanumber", "0", "70000", "-1"}
	for _, v := range tests {
		t.Run(v, func(t *testing.T) {
			t.Setenv(EnvPort, v)
			if _, err := New(); err == nil {
				t.Errorf("New() with %s=%q should fail", EnvPort, v)
			}
		})
	}
}
