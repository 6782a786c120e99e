package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"envis/internal/logger"
	"envis/internal/models"
	"envis/internal/utils"
)

type DnsmasqInstaller struct {
	*StandardInstaller
}

func NewDnsmasqInstaller(servicesDir string, dm *DownloadManager) *DnsmasqInstaller {
	di := &DnsmasqInstaller{}
	di.StandardInstaller = NewStandardInstaller(
		models.TypeDnsmasq, servicesDir, dm, dnsmasqURLs, nil)
	return di
}

func dnsmasqURLs(version string) ([]string, string, error) {
	if runtime.GOOS == "windows" {
		return nil, "", fmt.Errorf("dnsmasq is not supported on Windows")
	}
	name := fmt.Sprintf("dnsmasq-%s.tar.gz", version)
	return []string{
		fmt.Sprintf("https://thekelleys.org.uk/dnsmasq/%s", name),
	}, name, nil
}

// Dnsmasq only ships source tarballs, so the install is a make build
// with PREFIX pointed at the shared installation directory.
func (di *DnsmasqInstaller) DownloadAndInstall(version string) error {
	urls, archiveName, err := dnsmasqURLs(version)
	if err != nil {
		return err
	}
	installDir := di.InstallDir(version)
	taskID := TaskID(models.TypeDnsmasq, version)
	buildDir := filepath.Join(installDir, ".build")

	return di.dm.StartDownload(taskID, urls, buildDir, archiveName, true,
		func(task *models.DownloadTask) error {
			if err := di.dm.SetStatus(task.ID, models.DownloadInstalling, ""); err != nil {
				return err
			}
			defer os.RemoveAll(buildDir)
			if err := utils.ExtractArchive(task.TargetPath, buildDir); err != nil {
				return &models.InstallError{Step: "extract", Err: err}
			}
			os.Remove(task.TargetPath)

			ctx := context.Background()
			if res, err := utils.RunCommand(ctx, buildDir, nil, "make"); err != nil {
				return &models.InstallError{Step: "make", Stderr: res.Stderr, Err: err}
			}
			if res, err := utils.RunCommand(ctx, buildDir, nil,
				"make", "install", "PREFIX="+installDir); err != nil {
				return &models.InstallError{Step: "make install", Stderr: res.Stderr, Err: err}
			}
			utils.MarkExecutables(installDir)
			if err := di.dm.SetStatus(task.ID, models.DownloadInstalled, ""); err != nil {
				return err
			}
			logger.Infof("Installed dnsmasq %s into %s", version, installDir)
			return nil
		})
}
