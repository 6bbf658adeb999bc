package config_test

import (
	"testing"
	"time"

	"github.com/ajayjoseph-creator/vibex-relay/pkg/config"
	"github.com/ajayjoseph-creator/vibex-relay/pkg/logging"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(logging.New(logging.LevelError+1), "does-not-exist")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("expected default address :8080, got %q", cfg.Server.Address)
	}
	if cfg.PendingOffers.MaxPerTarget != 16 {
		t.Errorf("expected default maxPerTarget 16, got %d", cfg.PendingOffers.MaxPerTarget)
	}
	if cfg.PendingOffers.TTL != 2*time.Minute {
		t.Errorf("expected default ttl 2m, got %s", cfg.PendingOffers.TTL)
	}
	if cfg.Transport.ReadTimeout != 60*time.Second {
		t.Errorf("expected default readTimeout 60s, got %s", cfg.Transport.ReadTimeout)
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("expected presence mirror disabled by default, got %q", cfg.Redis.Addr)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("VIBEX_SERVER_ADDRESS", ":9090")
	t.Setenv("VIBEX_PENDINGOFFERS_MAXPERTARGET", "4")

	cfg, err := config.Load(logging.New(logging.LevelError+1), "does-not-exist")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":9090" {
		t.Errorf("env override ignored for address: %q", cfg.Server.Address)
	}
	if cfg.PendingOffers.MaxPerTarget != 4 {
		t.Errorf("env override ignored for maxPerTarget: %d", cfg.PendingOffers.MaxPerTarget)
	}
}
