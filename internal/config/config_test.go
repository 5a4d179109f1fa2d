package config

import (
	"testing"

	"github.com/steerclearwm/steerclear/internal/scheduler"
)

func TestPickupOffsetDefault(t *testing.T) {
	t.Setenv("PICKUP_OFFSET", "")
	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PickupOffset != scheduler.DefaultPickupOffset {
		t.Fatalf("PickupOffset = %v, want %v", cfg.PickupOffset, scheduler.DefaultPickupOffset)
	}
}

func TestPickupOffsetExplicitZero(t *testing.T) {
	t.Setenv("PICKUP_OFFSET", "0s")
	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PickupOffset != 0 {
		t.Fatalf("PickupOffset = %v, want 0", cfg.PickupOffset)
	}
}

func TestInvalidDurationRejected(t *testing.T) {
	t.Setenv("PICKUP_OFFSET", "ten minutes")
	if _, err := LoadServerConfig(); err == nil {
		t.Fatal("expected error for unparseable PICKUP_OFFSET")
	}
}

func TestKafkaBrokersSplit(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,,")
	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "k1:9092" || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
}
