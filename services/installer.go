package services

import (
	"fmt"
	"os"
	"path/filepath"

	"envis/internal/logger"
	"envis/internal/models"
	"envis/internal/utils"
)

/**
 * ServiceInstaller is the uniform per-service-type install contract
 * @description
 * - All installers share the task-id scheme "{type}-{version}" so the
 *   UI can observe download progress uniformly
 */
type ServiceInstaller interface {
	Type() models.ServiceType
	AvailableVersions() ([]models.VersionInfo, error)
	IsInstalled(version string) bool
	DownloadAndInstall(version string) error
	CancelDownload(version string) error
	DownloadProgress(version string) (models.DownloadTask, bool)
	Uninstall(version string) error
}

// InstallerRegistry dispatches to the right installer by service type.
type InstallerRegistry struct {
	installers map[models.ServiceType]ServiceInstaller
}

func NewInstallerRegistry(servicesDir string, dm *DownloadManager) *InstallerRegistry {
	r := &InstallerRegistry{installers: make(map[models.ServiceType]ServiceInstaller)}
	r.register(NewNodejsInstaller(servicesDir, dm))
	r.register(NewMongoDBInstaller(servicesDir, dm))
	r.register(NewNginxInstaller(servicesDir, dm))
	r.register(NewDnsmasqInstaller(servicesDir, dm))
	r.register(NewJavaInstaller(servicesDir, dm))
	r.register(NewStandardInstaller(models.TypeMariaDB, servicesDir, dm, mariadbURLs, nil))
	r.register(NewStandardInstaller(models.TypeMySQL, servicesDir, dm, mysqlURLs, nil))
	r.register(NewStandardInstaller(models.TypePostgreSQL, servicesDir, dm, postgresqlURLs, nil))
	r.register(NewStandardInstaller(models.TypePython, servicesDir, dm, pythonURLs, nil))
	return r
}

func (r *InstallerRegistry) register(in ServiceInstaller) {
	r.installers[in.Type()] = in
}

func (r *InstallerRegistry) Get(t models.ServiceType) (ServiceInstaller, error) {
	in, ok := r.installers[t]
	if !ok {
		return nil, fmt.Errorf("installer for service type '%s': %w", t, models.ErrNotFound)
	}
	return in, nil
}

// TaskID is the shared download-task naming scheme.
func TaskID(t models.ServiceType, version string) string {
	return fmt.Sprintf("%s-%s", t, version)
}

/**
 * StandardInstaller downloads an archive and unpacks it into the shared
 * installation directory {root}/services/{type}/{version}
 * @description
 * - .tar.gz/.tar.xz archives are extracted with one leading component
 *   stripped; zip archives are hoisted when nested in one directory
 * - Executables under bin/ and sbin/ are chmod 0755 on Unix
 * - Archives are deleted on success
 * - postInstall runs with the task still Installing; returning an error
 *   fails the task
 */
type StandardInstaller struct {
	serviceType models.ServiceType
	servicesDir string
	dm          *DownloadManager
	urlsFor     func(version string) ([]string, string, error)
	versionsFor func() ([]models.VersionInfo, error)
	postInstall func(installDir, version string) error
}

func NewStandardInstaller(
	t models.ServiceType,
	servicesDir string,
	dm *DownloadManager,
	urlsFor func(version string) ([]string, string, error),
	versionsFor func() ([]models.VersionInfo, error),
) *StandardInstaller {
	return &StandardInstaller{
		serviceType: t,
		servicesDir: servicesDir,
		dm:          dm,
		urlsFor:     urlsFor,
		versionsFor: versionsFor,
	}
}

func (si *StandardInstaller) Type() models.ServiceType { return si.serviceType }

func (si *StandardInstaller) InstallDir(version string) string {
	return filepath.Join(si.servicesDir, string(si.serviceType), version)
}

func (si *StandardInstaller) AvailableVersions() ([]models.VersionInfo, error) {
	if si.versionsFor != nil {
		return si.versionsFor()
	}
	return staticVersions(si.serviceType), nil
}

func (si *StandardInstaller) IsInstalled(version string) bool {
	entries, err := os.ReadDir(si.InstallDir(version))
	return err == nil && len(entries) > 0
}

func (si *StandardInstaller) DownloadAndInstall(version string) error {
	urls, archiveName, err := si.urlsFor(version)
	if err != nil {
		return err
	}
	installDir := si.InstallDir(version)
	taskID := TaskID(si.serviceType, version)
	return si.dm.StartDownload(taskID, urls, installDir, archiveName, true,
		func(task *models.DownloadTask) error {
			return si.installArchive(task, installDir, version)
		})
}

func (si *StandardInstaller) installArchive(task *models.DownloadTask, installDir, version string) error {
	if err := si.dm.SetStatus(task.ID, models.DownloadInstalling, ""); err != nil {
		return err
	}
	if err := utils.ExtractArchive(task.TargetPath, installDir); err != nil {
		return &models.InstallError{Step: "extract", Err: err}
	}
	utils.MarkExecutables(installDir)
	if err := os.Remove(task.TargetPath); err != nil {
		logger.Warnf("Remove archive '%s' failed: %v", task.TargetPath, err)
	}
	if si.postInstall != nil {
		if err := si.postInstall(installDir, version); err != nil {
			return err
		}
	}
	if err := si.dm.SetStatus(task.ID, models.DownloadInstalled, ""); err != nil {
		return err
	}
	logger.Infof("Installed %s %s into %s", si.serviceType, version, installDir)
	return nil
}

func (si *StandardInstaller) CancelDownload(version string) error {
	return si.dm.Cancel(TaskID(si.serviceType, version))
}

func (si *StandardInstaller) DownloadProgress(version string) (models.DownloadTask, bool) {
	return si.dm.GetTask(TaskID(si.serviceType, version))
}

/**
 * Remove the shared installation of a version
 * @description
 * - ServiceData records referencing the installation are left dangling;
 *   their activation fails gracefully with NotFound
 */
func (si *StandardInstaller) Uninstall(version string) error {
	dir := si.InstallDir(version)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("installation %s %s: %w", si.serviceType, version, models.ErrNotFound)
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	utils.RemoveDirIfEmpty(filepath.Dir(dir))
	return nil
}
