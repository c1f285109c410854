package main

import (
	"strings"
	"testing"

	"budgetcal/internal/config"
	"budgetcal/internal/log"
)

func TestRunWithoutBrokerReturnsError(t *testing.T) {
	cfg := config.Default()
	cfg.DataBackend = "sqlite"
	cfg.SQLiteDBPath = t.TempDir() + "/ledger.db"
	cfg.AMQPURL = ""

	err := run(cfg, log.New(log.DefaultConfig()))
	if err == nil || !strings.Contains(err.Error(), "AMQP_URL") {
		t.Fatalf("run() error = %v, want a missing broker error", err)
	}
}

func TestRunWithBadBackendReturnsError(t *testing.T) {
	cfg := config.Default()
	cfg.DataBackend = "cassandra"

	if err := run(cfg, log.New(log.DefaultConfig())); err == nil {
		t.Fatal("run() succeeded with an unknown backend")
	}
}
