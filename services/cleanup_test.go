package services

import (
	"strings"
	"testing"

	"envis/internal/models"
)

func TestCleanupOnExitDeactivatesActiveEnvironments(t *testing.T) {
	f := newEnvTestFixture(t)
	e, err := f.envs.Create("dev")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.envs.Activate(e); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	cfg := f.cfg.Get()
	cfg.StopAllServicesOnExit = true
	if err := f.cfg.Set(cfg); err != nil {
		t.Fatalf("Set: %v", err)
	}

	CleanupOnExit(f.cfg, f.envs, f.shell)

	got, err := f.envs.Get(e.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.StatusInactive {
		t.Errorf("status after cleanup = %q, want %q", got.Status, models.StatusInactive)
	}
	content := readTarget(t, f.target)
	if strings.Contains(content, "Current environment") {
		t.Error("greeting line survived exit cleanup")
	}
}

func TestCleanupOnExitRespectsFlag(t *testing.T) {
	f := newEnvTestFixture(t)
	e, err := f.envs.Create("dev")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.envs.Activate(e); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	CleanupOnExit(f.cfg, f.envs, f.shell)

	got, err := f.envs.Get(e.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.StatusActive {
		t.Errorf("status = %q, cleanup ran with stop_all_services_on_exit unset", got.Status)
	}
}
