package config

import "testing"

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Index.ChunkSize != 1000 {
		t.Errorf("expected ChunkSize=1000, got %d", cfg.Index.ChunkSize)
	}
	if cfg.Index.ChunkOverlap != 200 {
		t.Errorf("expected ChunkOverlap=200, got %d", cfg.Index.ChunkOverlap)
	}
	if cfg.Index.MaxChunks != 3 {
		t.Errorf("expected MaxChunks=3, got %d", cfg.Index.MaxChunks)
	}
	if cfg.Registry.Driver != "file" {
		t.Errorf("expected registry driver file, got %q", cfg.Registry.Driver)
	}
	if cfg.Cache.Driver != "memory" {
		t.Errorf("expected cache driver memory, got %q", cfg.Cache.Driver)
	}
	if cfg.Generation.MaxTokens != 2048 {
		t.Errorf("expected MaxTokens=2048, got %d", cfg.Generation.MaxTokens)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_OverlapNotBelowChunkSize(t *testing.T) {
	cfg := validConfig()
	cfg.Index.ChunkSize = 100
	cfg.Index.ChunkOverlap = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for overlap >= chunk size")
	}
}

func TestValidate_UnknownRegistryDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Registry.Driver = "postgres"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown registry driver")
	}

	expected := `registry.driver must be "file" or "redis", got "postgres"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_RedisDriverRequiresAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Driver = "redis"
	cfg.Cache.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for redis driver without addrs")
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("NIDHI_TEST_KEY", "secret")

	out := string(expandEnvVars([]byte("api_key: ${NIDHI_TEST_KEY}")))
	if out != "api_key: secret" {
		t.Errorf("unexpected expansion: %q", out)
	}

	out = string(expandEnvVars([]byte("port: ${NIDHI_TEST_MISSING:-8080}")))
	if out != "port: 8080" {
		t.Errorf("unexpected default expansion: %q", out)
	}
}
