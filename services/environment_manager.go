package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"envis/internal/config"
	"envis/internal/logger"
	"envis/internal/models"
	"envis/internal/utils"
)

const environmentFile = "environment.json"

/**
 * EnvironmentManager owns {root}/envs/{env_id}/environment.json
 * @description
 * - Activation composes the shell block from scratch: clear, then the
 *   optional greeting, then whatever each service contributes when the
 *   caller reactivates services afterwards
 * - Locks nest environment then shell; the shell lock is never held
 *   across environment persistence
 */
type EnvironmentManager struct {
	mu    sync.Mutex
	cfg   *config.Store
	shell *ShellManager
	sds   *ServiceDataManager
}

func NewEnvironmentManager(cfg *config.Store, shell *ShellManager, sds *ServiceDataManager) *EnvironmentManager {
	return &EnvironmentManager{cfg: cfg, shell: shell, sds: sds}
}

func (m *EnvironmentManager) envDir(envID string) string {
	return filepath.Join(m.cfg.EnvsDir(), envID)
}

func (m *EnvironmentManager) envPath(envID string) string {
	return filepath.Join(m.envDir(envID), environmentFile)
}

func readEnvironment(path string) (*models.Environment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e models.Environment
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (m *EnvironmentManager) persist(e *models.Environment) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return utils.AtomicWriteFile(m.envPath(e.ID), data, 0o644)
}

// GetAll lists every environment sorted by sort key then created_at.
// Unparsable records are logged and skipped.
func (m *EnvironmentManager) GetAll() ([]models.Environment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getAllLocked()
}

func (m *EnvironmentManager) getAllLocked() ([]models.Environment, error) {
	dirs, err := os.ReadDir(m.cfg.EnvsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []models.Environment
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		e, err := readEnvironment(filepath.Join(m.cfg.EnvsDir(), d.Name(), environmentFile))
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warnf("Skip unreadable environment '%s': %v", d.Name(), err)
			}
			continue
		}
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sort != out[j].Sort {
			return out[i].Sort < out[j].Sort
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *EnvironmentManager) Get(envID string) (*models.Environment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(envID)
}

func (m *EnvironmentManager) getLocked(envID string) (*models.Environment, error) {
	e, err := readEnvironment(m.envPath(envID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("environment '%s': %w", envID, models.ErrNotFound)
		}
		return nil, err
	}
	return e, nil
}

// FindByNameOrID resolves an id first, then falls back to an exact
// name match.
func (m *EnvironmentManager) FindByNameOrID(nameOrID string) (*models.Environment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, err := m.getLocked(nameOrID); err == nil {
		return e, nil
	}
	all, err := m.getAllLocked()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name == nameOrID {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("environment '%s': %w", nameOrID, models.ErrNotFound)
}

func (m *EnvironmentManager) Create(name string) (*models.Environment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.getAllLocked()
	if err != nil {
		return nil, err
	}
	minSort := 0
	for _, e := range all {
		if e.Sort < minSort {
			minSort = e.Sort
		}
	}
	now := time.Now()
	e := &models.Environment{
		ID:        utils.NewID(),
		Name:      name,
		Status:    models.StatusInactive,
		Sort:      minSort - 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := os.MkdirAll(m.envDir(e.ID), 0o755); err != nil {
		return nil, err
	}
	if err := m.persist(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (m *EnvironmentManager) Save(e *models.Environment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.envPath(e.ID)); os.IsNotExist(err) {
		return fmt.Errorf("environment '%s': %w", e.ID, models.ErrNotFound)
	}
	e.UpdatedAt = time.Now()
	return m.persist(e)
}

// Delete removes the environment directory recursively, service data
// records included.
func (m *EnvironmentManager) Delete(envID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.envPath(envID)); os.IsNotExist(err) {
		return fmt.Errorf("environment '%s': %w", envID, models.ErrNotFound)
	}
	return os.RemoveAll(m.envDir(envID))
}

/**
 * Activate an environment
 * @description
 * - Clears the managed block, optionally writes the greeting, marks the
 *   record Active and records the id as most recently used
 * - Service contributions are layered on top by ActivateWithServices
 */
func (m *EnvironmentManager) Activate(e *models.Environment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activateLocked(e)
}

func (m *EnvironmentManager) activateLocked(e *models.Environment) error {
	showName := m.cfg.Get().ShowEnvironmentNameOnTerminalOpen
	err := m.shell.Apply(func(edit *BlockEdit) {
		edit.Clear()
		if showName {
			edit.SetEcho(fmt.Sprintf("Envis: Current environment is %s (%s)", e.Name, e.ID))
		}
	})
	if err != nil {
		recordActivation("failed")
		return err
	}
	recordActivation("activated")
	e.Status = models.StatusActive
	e.UpdatedAt = time.Now()
	if err := m.persist(e); err != nil {
		return err
	}
	if err := m.cfg.RecordEnvironmentUse(e.ID); err != nil {
		logger.Warnf("Record environment use failed: %v", err)
	}
	return nil
}

func (m *EnvironmentManager) Deactivate(e *models.Environment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deactivateLocked(e)
}

func (m *EnvironmentManager) deactivateLocked(e *models.Environment) error {
	if err := m.shell.ClearBlockContent(); err != nil {
		return err
	}
	recordActivation("deactivated")
	e.Status = models.StatusInactive
	e.UpdatedAt = time.Now()
	return m.persist(e)
}

/**
 * Activate an environment and reactivate its services
 * @param {string} password - Passed through to privileged strategies, may be empty
 * @description
 * - When deactivate_other_environments_on_activate is set, every other
 *   Active environment is deactivated with its services first
 * - Only services whose persisted status was already Active are
 *   reactivated; Inactive ones stay off
 * - A service that fails to activate is logged and skipped so one
 *   dangling installation does not block the whole environment
 */
func (m *EnvironmentManager) ActivateWithServices(e *models.Environment, password string) error {
	if m.cfg.Get().DeactivateOtherEnvironmentsOnActivate {
		all, err := m.GetAll()
		if err != nil {
			return err
		}
		for i := range all {
			if all[i].ID == e.ID || all[i].Status != models.StatusActive {
				continue
			}
			// The block is cleared by the activation below, so only the
			// environment record flips here. Service records keep their
			// Active flag so switching back restores them.
			if err := m.Deactivate(&all[i]); err != nil {
				logger.Warnf("Deactivate environment '%s' failed: %v", all[i].Name, err)
			}
		}
	}

	if err := m.Activate(e); err != nil {
		return err
	}

	sds, err := m.sds.List(e.ID)
	if err != nil {
		return err
	}
	for i := range sds {
		if sds[i].Status != models.StatusActive {
			continue
		}
		if err := m.sds.Activate(e.ID, &sds[i], password); err != nil {
			logger.Warnf("Activate service %s %s in environment '%s' failed: %v",
				sds[i].ServiceType, sds[i].Version, e.Name, err)
		}
	}
	return nil
}

// DeactivateWithServices deactivates each Active service and then the
// environment itself. Service records keep their Active status on disk
// untouched here only when deactivation fails; successful deactivation
// persists Inactive per record.
func (m *EnvironmentManager) DeactivateWithServices(e *models.Environment, password string) error {
	sds, err := m.sds.List(e.ID)
	if err != nil {
		return err
	}
	for i := range sds {
		if sds[i].Status != models.StatusActive {
			continue
		}
		if err := m.sds.Deactivate(e.ID, &sds[i], password); err != nil {
			logger.Warnf("Deactivate service %s %s in environment '%s' failed: %v",
				sds[i].ServiceType, sds[i].Version, e.Name, err)
		}
	}
	return m.Deactivate(e)
}
