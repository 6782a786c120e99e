package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"envis/internal/config"
	"envis/internal/models"
)

type envTestFixture struct {
	cfg    *config.Store
	shell  *ShellManager
	target ShellTarget
	sds    *ServiceDataManager
	envs   *EnvironmentManager
}

func newEnvTestFixture(t *testing.T) *envTestFixture {
	t.Helper()
	cfg := newTestConfigStore(t)
	shell, target := newTestShellManager(t)
	hosts := NewHostsManagerAt(filepath.Join(t.TempDir(), "hosts"))
	sds := NewServiceDataManager(cfg, shell, hosts)
	return &envTestFixture{
		cfg:    cfg,
		shell:  shell,
		target: target,
		sds:    sds,
		envs:   NewEnvironmentManager(cfg, shell, sds),
	}
}

// installNodejs fakes a shared installation so activation passes its
// existence check.
func (f *envTestFixture) installNodejs(t *testing.T, version string) string {
	t.Helper()
	dir := filepath.Join(f.cfg.ServicesDir(), "nodejs", version)
	if err := os.MkdirAll(filepath.Join(dir, "bin"), 0755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestEnvironmentCreateFindDelete(t *testing.T) {
	f := newEnvTestFixture(t)

	e, err := f.envs.Create("dev")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	byID, err := f.envs.FindByNameOrID(e.ID)
	if err != nil || byID.ID != e.ID {
		t.Errorf("FindByNameOrID(id) = %v, %v", byID, err)
	}
	byName, err := f.envs.FindByNameOrID("dev")
	if err != nil || byName.ID != e.ID {
		t.Errorf("FindByNameOrID(name) = %v, %v", byName, err)
	}
	if _, err := f.envs.FindByNameOrID("nope"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("FindByNameOrID(unknown) = %v, want ErrNotFound", err)
	}

	if err := f.envs.Delete(e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.envs.Get(e.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}
}

func TestEnvironmentNewestSortsFirst(t *testing.T) {
	f := newEnvTestFixture(t)
	for _, name := range []string{"one", "two", "three"} {
		if _, err := f.envs.Create(name); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}
	all, err := f.envs.GetAll()
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	var names []string
	for _, e := range all {
		names = append(names, e.Name)
	}
	want := "three,two,one"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

/**
 * Activating an environment with an active Node.js service must leave
 * the managed block holding exactly one PATH contribution for the
 * version's bin directory, the npm prefix override from the record's
 * metadata, and the greeting line.
 */
func TestActivateEnvironmentWithNodejsService(t *testing.T) {
	f := newEnvTestFixture(t)
	installDir := f.installNodejs(t, "v20.19.1")

	e, err := f.envs.Create("dev")
	if err != nil {
		t.Fatalf("Create environment: %v", err)
	}
	sd, err := f.sds.Create(e.ID, models.TypeNodejs, "v20.19.1")
	if err != nil {
		t.Fatalf("Create service: %v", err)
	}
	prefix := filepath.Join(f.cfg.EnvsDir(), e.ID, "npm-global")
	sd.Metadata = map[string]interface{}{"NPM_CONFIG_PREFIX": prefix}
	sd.Status = models.StatusActive
	if _, err := f.sds.Update(e.ID, sd); err != nil {
		t.Fatalf("Update service: %v", err)
	}

	if err := f.envs.ActivateWithServices(e, ""); err != nil {
		t.Fatalf("ActivateWithServices: %v", err)
	}

	content := readTarget(t, f.target)
	binDir := filepath.Join(installDir, "bin")
	if got := strings.Count(content, binDir); got != 1 {
		t.Errorf("bin dir appears %d times in the block, want 1:\n%s", got, content)
	}
	if !strings.Contains(content, fmt.Sprintf(`export NPM_CONFIG_PREFIX="%s"`, prefix)) {
		t.Errorf("metadata npm prefix override missing:\n%s", content)
	}
	if !strings.Contains(content, fmt.Sprintf("Envis: Current environment is dev (%s)", e.ID)) {
		t.Errorf("greeting line missing:\n%s", content)
	}

	reloaded, err := f.envs.Get(e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != models.StatusActive {
		t.Errorf("persisted environment status = %s, want %s", reloaded.Status, models.StatusActive)
	}
	if ids := f.cfg.Get().LastUsedEnvironmentIDs; len(ids) == 0 || ids[0] != e.ID {
		t.Errorf("last_used_environment_ids = %v, want %s first", ids, e.ID)
	}
}

/**
 * Switching environments with deactivate-others enabled must flip the
 * previous record to Inactive, replace the block content wholesale and
 * keep the previous environment's service records Active on disk so a
 * switch back restores them.
 */
func TestEnvironmentSwitchReplacesBlock(t *testing.T) {
	f := newEnvTestFixture(t)

	e1, err := f.envs.Create("first")
	if err != nil {
		t.Fatal(err)
	}
	sd, err := f.sds.Create(e1.ID, models.TypeCustom, "v1")
	if err != nil {
		t.Fatal(err)
	}
	sd.Metadata = map[string]interface{}{
		"envVars": map[string]interface{}{"FOO": "bar"},
	}
	sd.Status = models.StatusActive
	if _, err := f.sds.Update(e1.ID, sd); err != nil {
		t.Fatal(err)
	}
	if err := f.envs.ActivateWithServices(e1, ""); err != nil {
		t.Fatalf("activate first: %v", err)
	}
	if content := readTarget(t, f.target); !strings.Contains(content, `export FOO="bar"`) {
		t.Fatalf("first environment's export missing:\n%s", content)
	}

	e2, err := f.envs.Create("second")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.envs.ActivateWithServices(e2, ""); err != nil {
		t.Fatalf("activate second: %v", err)
	}

	content := readTarget(t, f.target)
	if strings.Contains(content, "FOO") {
		t.Errorf("previous environment's export survived the switch:\n%s", content)
	}
	if !strings.Contains(content, fmt.Sprintf("Envis: Current environment is second (%s)", e2.ID)) {
		t.Errorf("greeting for the new environment missing:\n%s", content)
	}

	prev, err := f.envs.Get(e1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if prev.Status != models.StatusInactive {
		t.Errorf("previous environment status = %s, want %s", prev.Status, models.StatusInactive)
	}
	prevSd, err := f.sds.Get(e1.ID, models.TypeCustom, "v1")
	if err != nil {
		t.Fatal(err)
	}
	if prevSd.Status != models.StatusActive {
		t.Errorf("service record status = %s, want %s preserved for switch-back", prevSd.Status, models.StatusActive)
	}
}

func TestDeactivateWithServicesEmptiesBlock(t *testing.T) {
	f := newEnvTestFixture(t)
	f.installNodejs(t, "v20.19.1")

	e, err := f.envs.Create("dev")
	if err != nil {
		t.Fatal(err)
	}
	sd, err := f.sds.Create(e.ID, models.TypeNodejs, "v20.19.1")
	if err != nil {
		t.Fatal(err)
	}
	sd.Status = models.StatusActive
	if _, err := f.sds.Update(e.ID, sd); err != nil {
		t.Fatal(err)
	}
	if err := f.envs.ActivateWithServices(e, ""); err != nil {
		t.Fatal(err)
	}

	if err := f.envs.DeactivateWithServices(e, ""); err != nil {
		t.Fatalf("DeactivateWithServices: %v", err)
	}
	content := readTarget(t, f.target)
	if strings.Contains(content, "v20.19.1") || strings.Contains(content, "Current environment") {
		t.Errorf("block not cleared on deactivation:\n%s", content)
	}
	if reloaded, _ := f.envs.Get(e.ID); reloaded.Status != models.StatusInactive {
		t.Errorf("environment status = %s, want %s", reloaded.Status, models.StatusInactive)
	}
	if reloadedSd, _ := f.sds.Get(e.ID, models.TypeNodejs, "v20.19.1"); reloadedSd.Status != models.StatusInactive {
		t.Errorf("service status = %s, want %s", reloadedSd.Status, models.StatusInactive)
	}
}
