package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testConfig = `
server:
  http:
    addr: 0.0.0.0:8000
    timeout: 2s
  grpc:
    addr: 0.0.0.0:9000
data:
  redis:
    addr: 127.0.0.1:6379
    read_timeout: 200ms
randomizer:
  root_seed: "root"
  max_draws: 50
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	bc, err := Load(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if bc.Server.HTTP.Addr != "0.0.0.0:8000" {
		t.Errorf("http addr = %q", bc.Server.HTTP.Addr)
	}
	if bc.Server.HTTP.Timeout.AsDuration() != 2*time.Second {
		t.Errorf("http timeout = %v", bc.Server.HTTP.Timeout)
	}
	if bc.Data.Redis.ReadTimeout.AsDuration() != 200*time.Millisecond {
		t.Errorf("redis read timeout = %v", bc.Data.Redis.ReadTimeout)
	}
	if bc.Randomizer.RootSeed != "root" || bc.Randomizer.MaxDraws != 50 {
		t.Errorf("randomizer = %+v", bc.Randomizer)
	}
}

func TestLoad_Defaults(t *testing.T) {
	bc, err := Load(writeConfig(t, "randomizer:\n  root_seed: root\n"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if bc.Randomizer.MaxDraws != DefaultMaxDraws {
		t.Errorf("MaxDraws = %d, want %d", bc.Randomizer.MaxDraws, DefaultMaxDraws)
	}
	if bc.Randomizer.MaxArrayLength != DefaultMaxArrayLength {
		t.Errorf("MaxArrayLength = %d, want %d", bc.Randomizer.MaxArrayLength, DefaultMaxArrayLength)
	}
	if bc.Randomizer.CheckpointEvery != DefaultCheckpointEvery {
		t.Errorf("CheckpointEvery = %d, want %d", bc.Randomizer.CheckpointEvery, DefaultCheckpointEvery)
	}
	if bc.Data.Database.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres", bc.Data.Database.Driver)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RANDOMIZER_HTTP_ADDR", "127.0.0.1:18000")
	t.Setenv("RANDOMIZER_HTTP_TIMEOUT", "5s")
	t.Setenv("RANDOMIZER_ROOT_SEED", "from env")
	t.Setenv("RANDOMIZER_REDIS_DB", "3")

	bc, err := Load(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if bc.Server.HTTP.Addr != "127.0.0.1:18000" {
		t.Errorf("http addr = %q", bc.Server.HTTP.Addr)
	}
	if bc.Server.HTTP.Timeout.AsDuration() != 5*time.Second {
		t.Errorf("http timeout = %v", bc.Server.HTTP.Timeout)
	}
	if bc.Server.GRPC.Addr != "0.0.0.0:9000" {
		t.Errorf("grpc addr changed to %q", bc.Server.GRPC.Addr)
	}
	if bc.Randomizer.RootSeed != "from env" {
		t.Errorf("root seed = %q", bc.Randomizer.RootSeed)
	}
	if bc.Data.Redis.Db != 3 {
		t.Errorf("redis db = %d", bc.Data.Redis.Db)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatalf("UnmarshalText error: %v", err)
	}
	if d.AsDuration() != 90*time.Second {
		t.Fatalf("duration = %v", d.AsDuration())
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Fatal("UnmarshalText accepted an invalid duration")
	}
}
