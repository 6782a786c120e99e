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

const serviceDataFile = "service.json"

/**
 * ServiceDataManager owns {root}/envs/{env_id}/{type}/{version}/service.json
 * @description
 * - Exactly one record per (env_id, type, version) directory
 * - Records reference shared installations without owning them; a
 *   record whose installation was removed fails activation with
 *   NotFound instead of crashing
 */
type ServiceDataManager struct {
	mu    sync.Mutex
	cfg   *config.Store
	shell *ShellManager
	hosts *HostsManager
}

func NewServiceDataManager(cfg *config.Store, shell *ShellManager, hosts *HostsManager) *ServiceDataManager {
	return &ServiceDataManager{cfg: cfg, shell: shell, hosts: hosts}
}

func (m *ServiceDataManager) recordDir(envID string, t models.ServiceType, version string) string {
	return filepath.Join(m.cfg.EnvsDir(), envID, string(t), version)
}

func (m *ServiceDataManager) recordPath(envID string, t models.ServiceType, version string) string {
	return filepath.Join(m.recordDir(envID, t, version), serviceDataFile)
}

/**
 * List every service data record of an environment
 * @description
 * - Walks {envs}/{env_id}/{type}/{version}/service.json; anything that
 *   does not match the shape is skipped
 * - A record that fails to parse is logged and dropped from the
 *   listing rather than failing the whole call
 * - Results sort by sort key, then created_at
 */
func (m *ServiceDataManager) List(envID string) ([]models.ServiceData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(envID)
}

func (m *ServiceDataManager) listLocked(envID string) ([]models.ServiceData, error) {
	envDir := filepath.Join(m.cfg.EnvsDir(), envID)
	if _, err := os.Stat(envDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("environment '%s': %w", envID, models.ErrNotFound)
	}

	var out []models.ServiceData
	typeDirs, err := os.ReadDir(envDir)
	if err != nil {
		return nil, err
	}
	for _, td := range typeDirs {
		if !td.IsDir() || !models.ServiceType(td.Name()).Valid() {
			continue
		}
		versionDirs, err := os.ReadDir(filepath.Join(envDir, td.Name()))
		if err != nil {
			continue
		}
		for _, vd := range versionDirs {
			if !vd.IsDir() {
				continue
			}
			path := filepath.Join(envDir, td.Name(), vd.Name(), serviceDataFile)
			sd, err := readServiceData(path)
			if err != nil {
				if !os.IsNotExist(err) {
					logger.Warnf("Skip unreadable service data '%s': %v", path, err)
				}
				continue
			}
			out = append(out, *sd)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sort != out[j].Sort {
			return out[i].Sort < out[j].Sort
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func readServiceData(path string) (*models.ServiceData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sd models.ServiceData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	return &sd, nil
}

func (m *ServiceDataManager) persist(envID string, sd *models.ServiceData) error {
	data, err := json.MarshalIndent(sd, "", "  ")
	if err != nil {
		return err
	}
	return utils.AtomicWriteFile(m.recordPath(envID, sd.ServiceType, sd.Version), data, 0o644)
}

/**
 * Create a service data record for (env_id, type, version)
 * @description
 * - Name defaults to the type's display label
 * - Sort is assigned one below the environment's current minimum so
 *   new records float to the top of listings
 * - Duplicate (type, version) in the same environment is AlreadyExists
 */
func (m *ServiceDataManager) Create(envID string, t models.ServiceType, version string) (*models.ServiceData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !t.Valid() {
		return nil, fmt.Errorf("unknown service type '%s'", t)
	}
	if _, err := os.Stat(m.recordPath(envID, t, version)); err == nil {
		return nil, fmt.Errorf("service %s %s in environment '%s': %w",
			t, version, envID, models.ErrAlreadyExists)
	}

	existing, err := m.listLocked(envID)
	if err != nil {
		return nil, err
	}
	minSort := 0
	for _, sd := range existing {
		if sd.Sort < minSort {
			minSort = sd.Sort
		}
	}

	now := time.Now()
	sd := &models.ServiceData{
		ID:          utils.NewID(),
		Name:        t.DefaultLabel(),
		ServiceType: t,
		Version:     version,
		Status:      models.StatusInactive,
		Sort:        minSort - 1,
		Metadata:    defaultMetadata(t),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.persist(envID, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

// defaultMetadata seeds the free-form metadata bag per type. Databases
// get their conventional port; custom services get the three containers
// the activation strategy reads.
func defaultMetadata(t models.ServiceType) map[string]interface{} {
	switch t {
	case models.TypeMongoDB:
		return map[string]interface{}{"port": 27017, "dbpath": "data"}
	case models.TypeMariaDB, models.TypeMySQL:
		return map[string]interface{}{"port": 3306}
	case models.TypePostgreSQL:
		return map[string]interface{}{"port": 5432}
	case models.TypeNginx:
		return map[string]interface{}{"port": 8080}
	case models.TypeDnsmasq:
		return map[string]interface{}{"port": 53}
	case models.TypeCustom:
		return map[string]interface{}{
			"envVars": map[string]interface{}{},
			"paths":   []interface{}{},
			"aliases": map[string]interface{}{},
		}
	case models.TypeHost:
		return map[string]interface{}{"hosts": []interface{}{}}
	default:
		return nil
	}
}

func (m *ServiceDataManager) Get(envID string, t models.ServiceType, version string) (*models.ServiceData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sd, err := readServiceData(m.recordPath(envID, t, version))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("service %s %s in environment '%s': %w",
				t, version, envID, models.ErrNotFound)
		}
		return nil, err
	}
	return sd, nil
}

/**
 * Update a service data record
 * @description
 * - name, status, sort and metadata are writable; service_type and
 *   version are locked once created and silently ignored on update
 */
func (m *ServiceDataManager) Update(envID string, next *models.ServiceData) (*models.ServiceData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, err := readServiceData(m.recordPath(envID, next.ServiceType, next.Version))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("service %s %s in environment '%s': %w",
				next.ServiceType, next.Version, envID, models.ErrNotFound)
		}
		return nil, err
	}
	cur.Name = next.Name
	cur.Status = next.Status
	cur.Sort = next.Sort
	cur.Metadata = next.Metadata
	cur.UpdatedAt = time.Now()
	if err := m.persist(envID, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// Delete removes the record's directory recursively, then prunes the
// now possibly empty per-type directory.
func (m *ServiceDataManager) Delete(envID string, t models.ServiceType, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := m.recordDir(envID, t, version)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("service %s %s in environment '%s': %w", t, version, envID, models.ErrNotFound)
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	utils.RemoveDirIfEmpty(filepath.Dir(dir))
	return nil
}

/**
 * Activate one service data record
 * @description
 * - Dispatches to the lifecycle strategy chosen by service_type, then
 *   persists the record as Active with a fresh updated_at
 * - password is only consulted by the hosts strategy
 */
func (m *ServiceDataManager) Activate(envID string, sd *models.ServiceData, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.lifecycleFor(sd.ServiceType).Activate(sd, password); err != nil {
		return err
	}
	sd.Status = models.StatusActive
	sd.UpdatedAt = time.Now()
	return m.persist(envID, sd)
}

// Deactivate inverts every activation operation and persists Inactive.
func (m *ServiceDataManager) Deactivate(envID string, sd *models.ServiceData, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.lifecycleFor(sd.ServiceType).Deactivate(sd, password); err != nil {
		return err
	}
	sd.Status = models.StatusInactive
	sd.UpdatedAt = time.Now()
	return m.persist(envID, sd)
}

func (m *ServiceDataManager) lifecycleFor(t models.ServiceType) ServiceLifecycle {
	switch t {
	case models.TypeHost:
		return &HostLifecycle{hosts: m.hosts}
	case models.TypeCustom:
		return &CustomLifecycle{shell: m.shell}
	case models.TypeNodejs:
		return &NodejsLifecycle{shell: m.shell, servicesDir: m.cfg.ServicesDir()}
	default:
		return &StandardLifecycle{shell: m.shell, servicesDir: m.cfg.ServicesDir()}
	}
}
