package services

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	goversion "github.com/hashicorp/go-version"

	"envis/internal/logger"
	"envis/internal/models"
	"envis/internal/utils"
)

type MongoDBInstaller struct {
	*StandardInstaller
}

func NewMongoDBInstaller(servicesDir string, dm *DownloadManager) *MongoDBInstaller {
	mi := &MongoDBInstaller{}
	mi.StandardInstaller = NewStandardInstaller(
		models.TypeMongoDB, servicesDir, dm, mongodbURLs, nil)
	return mi
}

func mongodbURLs(version string) ([]string, string, error) {
	var platform, ext string
	switch runtime.GOOS {
	case "linux":
		platform = "linux-x86_64-ubuntu2204"
		ext = "tgz"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			platform = "macos-arm64"
		} else {
			platform = "macos-x86_64"
		}
		ext = "tgz"
	case "windows":
		platform = "windows-x86_64"
		ext = "zip"
	default:
		return nil, "", fmt.Errorf("mongodb: unsupported os %s", runtime.GOOS)
	}
	name := fmt.Sprintf("mongodb-%s-%s.%s", platform, version, ext)
	osDir := runtime.GOOS
	if osDir == "darwin" {
		osDir = "osx"
	}
	return []string{
		fmt.Sprintf("https://fastdl.mongodb.org/%s/%s", osDir, name),
	}, name, nil
}

/**
 * Install mongod, then rearm the same task with the companion mongosh
 * @description
 * - mongosh version: 2.5.8 for MongoDB major >= 7, 1.10.6 below
 * - mongosh is unpacked into the MongoDB installation's bin/
 * - A failed mongosh install settles the task at Installed with a
 *   logged warning; the server itself is usable without the shell
 */
func (mi *MongoDBInstaller) DownloadAndInstall(version string) error {
	urls, archiveName, err := mongodbURLs(version)
	if err != nil {
		return err
	}
	installDir := mi.InstallDir(version)
	taskID := TaskID(models.TypeMongoDB, version)
	return mi.dm.StartDownload(taskID, urls, installDir, archiveName, true,
		func(task *models.DownloadTask) error {
			if err := mi.dm.SetStatus(task.ID, models.DownloadInstalling, ""); err != nil {
				return err
			}
			if err := utils.ExtractArchive(task.TargetPath, installDir); err != nil {
				return &models.InstallError{Step: "extract", Err: err}
			}
			utils.MarkExecutables(installDir)
			os.Remove(task.TargetPath)

			if err := mi.installMongosh(task.ID, version, installDir); err != nil {
				logger.Warnf("mongosh install for MongoDB %s failed (non-fatal): %v", version, err)
				mi.dm.ForceStatus(task.ID, models.DownloadInstalled,
					fmt.Sprintf("mongosh install failed: %v", err))
			} else if err := mi.dm.SetStatus(task.ID, models.DownloadInstalled, ""); err != nil {
				return err
			}
			logger.Infof("Installed mongodb %s into %s", version, installDir)
			return nil
		})
}

func mongoshVersionFor(mongodbVersion string) string {
	if v, err := goversion.NewVersion(mongodbVersion); err == nil && v.Segments()[0] >= 7 {
		return "2.5.8"
	}
	return "1.10.6"
}

func mongoshURLs(version string) ([]string, string) {
	var platform, ext string
	switch runtime.GOOS {
	case "linux":
		platform = "linux-x64"
		ext = "tgz"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			platform = "darwin-arm64"
		} else {
			platform = "darwin-x64"
		}
		ext = "zip"
	default:
		platform = "win32-x64"
		ext = "zip"
	}
	name := fmt.Sprintf("mongosh-%s-%s.%s", version, platform, ext)
	return []string{
		fmt.Sprintf("https://downloads.mongodb.com/compass/%s", name),
	}, name
}

// installMongosh rearms the shared task for the second download phase
// and hoists the mongosh binaries into the server's bin directory.
func (mi *MongoDBInstaller) installMongosh(taskID, mongodbVersion, installDir string) error {
	shVersion := mongoshVersionFor(mongodbVersion)
	urls, archiveName := mongoshURLs(shVersion)
	stageDir := filepath.Join(installDir, ".mongosh-stage")
	defer os.RemoveAll(stageDir)

	return mi.dm.Rearm(taskID, urls, stageDir, archiveName,
		func(task *models.DownloadTask) error {
			if err := mi.dm.SetStatus(task.ID, models.DownloadInstalling, ""); err != nil {
				return err
			}
			if err := utils.ExtractArchive(task.TargetPath, stageDir); err != nil {
				return &models.InstallError{Step: "extract mongosh", Err: err}
			}
			os.Remove(task.TargetPath)
			binDir := filepath.Join(installDir, "bin")
			entries, err := os.ReadDir(filepath.Join(stageDir, "bin"))
			if err != nil {
				return err
			}
			for _, e := range entries {
				src := filepath.Join(stageDir, "bin", e.Name())
				if err := utils.CopyFile(src, filepath.Join(binDir, e.Name())); err != nil {
					return err
				}
			}
			utils.MarkExecutables(installDir)
			if err := mi.dm.SetStatus(task.ID, models.DownloadInstalled, ""); err != nil {
				return err
			}
			logger.Infof("Installed mongosh %s into %s", shVersion, binDir)
			return nil
		})
}
