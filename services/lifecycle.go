package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"envis/internal/models"
)

/**
 * ServiceLifecycle is the activation strategy chosen per service type
 * @description
 * - Host entries go to the OS hosts file, everything else goes through
 *   the shell block writer
 * - Deactivate must invert exactly what Activate contributed
 */
type ServiceLifecycle interface {
	Activate(sd *models.ServiceData, password string) error
	Deactivate(sd *models.ServiceData, password string) error
}

// StandardLifecycle composes PATH entries and exports from the service
// type's sub-dir and env-var tables rooted at the shared installation.
type StandardLifecycle struct {
	shell       *ShellManager
	servicesDir string
}

func (l *StandardLifecycle) installDir(sd *models.ServiceData) (string, error) {
	dir := filepath.Join(l.servicesDir, string(sd.ServiceType), sd.Version)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return "", fmt.Errorf("installation %s %s: %w", sd.ServiceType, sd.Version, models.ErrNotFound)
	}
	return dir, nil
}

func (l *StandardLifecycle) Activate(sd *models.ServiceData, _ string) error {
	dir, err := l.installDir(sd)
	if err != nil {
		return err
	}
	vars := overlayMetadata(sd.ServiceType.EnvVars(dir), sd.Metadata)
	return l.shell.Apply(func(e *BlockEdit) {
		for _, sub := range sd.ServiceType.BinSubDirs() {
			e.AddPath(filepath.Join(dir, sub))
		}
		for _, k := range sortedKeys(vars) {
			e.AddExport(k, vars[k])
		}
	})
}

func (l *StandardLifecycle) Deactivate(sd *models.ServiceData, _ string) error {
	// Deactivation must still work when the installation was removed,
	// so the directory is composed without the existence check.
	dir := filepath.Join(l.servicesDir, string(sd.ServiceType), sd.Version)
	vars := sd.ServiceType.EnvVars(dir)
	return l.shell.Apply(func(e *BlockEdit) {
		for _, sub := range sd.ServiceType.BinSubDirs() {
			e.DeletePath(filepath.Join(dir, sub))
		}
		for _, k := range sortedKeys(vars) {
			e.DeleteExport(k)
		}
	})
}

// NodejsLifecycle prepends the version's bin directory (the install
// root on Windows) and points npm's global prefix inside the version
// directory so globally installed packages stay version-scoped.
type NodejsLifecycle struct {
	shell       *ShellManager
	servicesDir string
}

func (l *NodejsLifecycle) Activate(sd *models.ServiceData, _ string) error {
	dir := filepath.Join(l.servicesDir, string(models.TypeNodejs), sd.Version)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("installation nodejs %s: %w", sd.Version, models.ErrNotFound)
	}
	vars := overlayMetadata(sd.ServiceType.EnvVars(dir), sd.Metadata)
	return l.shell.Apply(func(e *BlockEdit) {
		for _, sub := range sd.ServiceType.BinSubDirs() {
			e.AddPath(filepath.Join(dir, sub))
		}
		for _, k := range sortedKeys(vars) {
			e.AddExport(k, vars[k])
		}
	})
}

func (l *NodejsLifecycle) Deactivate(sd *models.ServiceData, _ string) error {
	dir := filepath.Join(l.servicesDir, string(models.TypeNodejs), sd.Version)
	vars := sd.ServiceType.EnvVars(dir)
	return l.shell.Apply(func(e *BlockEdit) {
		for _, sub := range sd.ServiceType.BinSubDirs() {
			e.DeletePath(filepath.Join(dir, sub))
		}
		for _, k := range sortedKeys(vars) {
			e.DeleteExport(k)
		}
	})
}

/**
 * CustomLifecycle pushes user-authored metadata to the shell block
 * @description
 * - metadata.envVars {K: V}, metadata.paths [P], metadata.aliases {K: V}
 * - Entries with non-string values are skipped
 */
type CustomLifecycle struct {
	shell *ShellManager
}

func (l *CustomLifecycle) Activate(sd *models.ServiceData, _ string) error {
	envVars := metadataStringMap(sd.Metadata, "envVars")
	paths := metadataStringList(sd.Metadata, "paths")
	aliases := metadataStringMap(sd.Metadata, "aliases")
	return l.shell.Apply(func(e *BlockEdit) {
		for _, k := range sortedKeys(envVars) {
			e.AddExport(k, envVars[k])
		}
		for _, p := range paths {
			e.AddPath(p)
		}
		for _, k := range sortedKeys(aliases) {
			e.AddAlias(k, aliases[k])
		}
	})
}

func (l *CustomLifecycle) Deactivate(sd *models.ServiceData, _ string) error {
	envVars := metadataStringMap(sd.Metadata, "envVars")
	paths := metadataStringList(sd.Metadata, "paths")
	aliases := metadataStringMap(sd.Metadata, "aliases")
	return l.shell.Apply(func(e *BlockEdit) {
		for _, k := range sortedKeys(envVars) {
			e.DeleteExport(k)
		}
		for _, p := range paths {
			e.DeletePath(p)
		}
		for _, k := range sortedKeys(aliases) {
			e.DeleteAlias(k)
		}
	})
}

/**
 * HostLifecycle applies metadata.hosts to the managed hosts block
 * @description
 * - Modifying the hosts file is privileged; an empty password returns
 *   the needAdminPasswordToModifyHosts sentinel before touching disk
 */
type HostLifecycle struct {
	hosts *HostsManager
}

func (l *HostLifecycle) entries(sd *models.ServiceData) ([]models.HostEntry, error) {
	raw, ok := sd.Metadata["hosts"]
	if !ok {
		return nil, nil
	}
	// Metadata is a free-form JSON bag; round-trip the hosts slice into
	// the typed form.
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var entries []models.HostEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("metadata.hosts is malformed: %w", err)
	}
	for i := range entries {
		entries[i].ID = models.HostEntryID(entries[i].IP, entries[i].Hostname)
	}
	return entries, nil
}

func (l *HostLifecycle) Activate(sd *models.ServiceData, password string) error {
	if password == "" {
		return models.ErrNeedsAdmin
	}
	entries, err := l.entries(sd)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return l.hosts.AddHosts(entries, password)
}

func (l *HostLifecycle) Deactivate(sd *models.ServiceData, password string) error {
	if password == "" {
		return models.ErrNeedsAdmin
	}
	entries, err := l.entries(sd)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return l.hosts.RemoveHosts(entries, password)
}

// overlayMetadata lets a record's metadata override the per-type env
// var defaults, e.g. pointing NPM_CONFIG_PREFIX at an env-local prefix.
func overlayMetadata(vars map[string]string, meta map[string]interface{}) map[string]string {
	for k := range vars {
		if v, ok := meta[k].(string); ok {
			vars[k] = v
		}
	}
	return vars
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func metadataStringMap(meta map[string]interface{}, key string) map[string]string {
	out := map[string]string{}
	raw, ok := meta[key].(map[string]interface{})
	if !ok {
		return out
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func metadataStringList(meta map[string]interface{}, key string) []string {
	raw, ok := meta[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
