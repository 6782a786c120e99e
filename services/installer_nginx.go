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

type NginxInstaller struct {
	*StandardInstaller
}

func NewNginxInstaller(servicesDir string, dm *DownloadManager) *NginxInstaller {
	ni := &NginxInstaller{}
	ni.StandardInstaller = NewStandardInstaller(
		models.TypeNginx, servicesDir, dm, nginxURLs, nil)
	return ni
}

func nginxURLs(version string) ([]string, string, error) {
	if runtime.GOOS == "windows" {
		name := fmt.Sprintf("nginx-%s.zip", version)
		return []string{fmt.Sprintf("https://nginx.org/download/%s", name)}, name, nil
	}
	name := fmt.Sprintf("nginx-%s.tar.gz", version)
	return []string{fmt.Sprintf("https://nginx.org/download/%s", name)}, name, nil
}

/**
 * Install nginx from source on Unix, from the upstream zip on Windows
 * @description
 * - Source flow: ./configure --prefix={installDir} with the ssl, http/2,
 *   gzip_static and stub_status modules, then make -j N, make install
 * - On macOS the deployment target is pinned to 11.0 and
 *   -Wno-error=unguarded-availability-new is added to CFLAGS to work
 *   around the pwritev availability error
 */
func (ni *NginxInstaller) DownloadAndInstall(version string) error {
	if runtime.GOOS == "windows" {
		return ni.StandardInstaller.DownloadAndInstall(version)
	}
	urls, archiveName, err := nginxURLs(version)
	if err != nil {
		return err
	}
	installDir := ni.InstallDir(version)
	taskID := TaskID(models.TypeNginx, version)
	buildDir := filepath.Join(installDir, ".build")

	return ni.dm.StartDownload(taskID, urls, buildDir, archiveName, true,
		func(task *models.DownloadTask) error {
			if err := ni.dm.SetStatus(task.ID, models.DownloadInstalling, ""); err != nil {
				return err
			}
			defer os.RemoveAll(buildDir)
			if err := utils.ExtractArchive(task.TargetPath, buildDir); err != nil {
				return &models.InstallError{Step: "extract", Err: err}
			}
			os.Remove(task.TargetPath)
			if err := buildNginx(buildDir, installDir); err != nil {
				return err
			}
			utils.MarkExecutables(installDir)
			if err := ni.dm.SetStatus(task.ID, models.DownloadInstalled, ""); err != nil {
				return err
			}
			logger.Infof("Installed nginx %s into %s", version, installDir)
			return nil
		})
}

func buildNginx(srcDir, installDir string) error {
	ctx := context.Background()
	var env []string
	if runtime.GOOS == "darwin" {
		env = append(env,
			"MACOSX_DEPLOYMENT_TARGET=11.0",
			"CFLAGS=-Wno-error=unguarded-availability-new",
		)
	}

	configureArgs := []string{
		"--prefix=" + installDir,
		"--with-http_ssl_module",
		"--with-http_v2_module",
		"--with-http_gzip_static_module",
		"--with-http_stub_status_module",
	}
	if res, err := utils.RunCommand(ctx, srcDir, env, "./configure", configureArgs...); err != nil {
		return &models.InstallError{Step: "configure", Stderr: res.Stderr, Err: err}
	}
	jobs := fmt.Sprintf("-j%d", runtime.NumCPU())
	if res, err := utils.RunCommand(ctx, srcDir, env, "make", jobs); err != nil {
		return &models.InstallError{Step: "make", Stderr: res.Stderr, Err: err}
	}
	if res, err := utils.RunCommand(ctx, srcDir, env, "make", "install"); err != nil {
		return &models.InstallError{Step: "make install", Stderr: res.Stderr, Err: err}
	}
	return nil
}
