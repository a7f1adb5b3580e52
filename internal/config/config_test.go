package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8080" || len(cfg.Bands) != 1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o, want 600", perm)
	}
}

func TestLoadNormalizesAndValidates(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	os.WriteFile(good, []byte(`
view:
  start: "0"
  end: "1000"
bands:
  - id: power
    kind: resource
    resource:
      max_limit: 10
  - id: ops
    children: [power]
`), 0o600)
	cfg, err := Load(good)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bands[1].Kind != "activity" {
		t.Fatalf("kind default = %q", cfg.Bands[1].Kind)
	}
	if cfg.View.Width != 1200 || cfg.LogLevel != "info" {
		t.Fatalf("view not normalized: %+v", cfg.View)
	}
	if limit := cfg.Bands[0].Resource.MaxLimit; limit == nil || *limit != 10 {
		t.Fatalf("max_limit = %v", limit)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("bands:\n  - id: a\n    children: [missing]\n"), 0o600)
	if _, err := Load(bad); err == nil {
		t.Fatal("Load accepted a dangling child reference")
	}
}

func TestParseTime(t *testing.T) {
	now := time.Unix(10_000, 0)
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1970-01-01T00:01:40Z", 100, true},
		{"500", 500, true},
		{"-1h", 10_000 - 3600, true},
		{"90m", 10_000 + 5400, true},
		{"yesterday", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseTime(tc.in, now)
		if (err == nil) != tc.ok || got != tc.want {
			t.Errorf("ParseTime(%q) = %d, %v", tc.in, got, err)
		}
	}
}

func TestWindowDefaultsViewToData(t *testing.T) {
	v := ViewConfig{Start: "0", End: "100"}
	s, e, vs, ve, err := v.Window(time.Now())
	if err != nil || s != 0 || e != 100 || vs != 0 || ve != 100 {
		t.Fatalf("Window = %d %d %d %d %v", s, e, vs, ve, err)
	}
	v.ViewStart, v.ViewEnd = "50", "40"
	if _, _, _, _, err := v.Window(time.Now()); err == nil {
		t.Fatal("inverted view accepted")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	env := map[string]string{
		"MISSIONTL_MYSQL_DSN":  "user:pw@/db",
		"MISSIONTL_REDIS_ADDR": "localhost:6379",
		"MISSIONTL_JWT_SECRET": "s3cret",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.MySQL == nil || cfg.MySQL.DSN != "user:pw@/db" {
		t.Fatalf("mysql = %+v", cfg.MySQL)
	}
	if cfg.Redis == nil || cfg.Redis.Prefix != "missiontl:" {
		t.Fatalf("redis = %+v", cfg.Redis)
	}
	if cfg.Auth.JWT == nil || cfg.Auth.JWT.Secret != "s3cret" {
		t.Fatal("jwt secret not applied")
	}
}
