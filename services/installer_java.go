package services

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"envis/internal/logger"
	"envis/internal/models"
	"envis/internal/utils"
)

type JavaInstaller struct {
	*StandardInstaller
}

func NewJavaInstaller(servicesDir string, dm *DownloadManager) *JavaInstaller {
	ji := &JavaInstaller{}
	ji.StandardInstaller = NewStandardInstaller(
		models.TypeJava, servicesDir, dm, javaURLs, nil)
	ji.postInstall = ji.installMaven
	return ji
}

func javaURLs(version string) ([]string, string, error) {
	major := strings.SplitN(version, ".", 2)[0]
	osName := map[string]string{"linux": "linux", "darwin": "mac", "windows": "windows"}[runtime.GOOS]
	if osName == "" {
		return nil, "", fmt.Errorf("java: unsupported os %s", runtime.GOOS)
	}
	arch := "x64"
	if runtime.GOARCH == "arm64" {
		arch = "aarch64"
	}
	name := fmt.Sprintf("jdk-%s_%s-%s.%s", version, osName, arch, archiveExt())
	return []string{
		fmt.Sprintf("https://api.adoptium.net/v3/binary/latest/%s/ga/%s/%s/jdk/hotspot/normal/eclipse",
			major, osName, arch),
	}, name, nil
}

/**
 * Pick a Maven release compatible with the given JDK
 * @description
 * - JDK 8 and older pair with 3.8.8, JDK 9 through 11 with 3.9.6,
 *   newer JDKs with 3.9.9
 */
func mavenVersionFor(javaVersion string) string {
	v, err := goversion.NewVersion(javaVersion)
	if err != nil {
		return "3.9.9"
	}
	major := v.Segments()[0]
	switch {
	case major <= 8:
		return "3.8.8"
	case major <= 11:
		return "3.9.6"
	default:
		return "3.9.9"
	}
}

func mavenURLs(mavenVersion string) ([]string, string) {
	name := fmt.Sprintf("apache-maven-%s-bin.tar.gz", mavenVersion)
	path := fmt.Sprintf("maven/maven-3/%s/binaries/%s", mavenVersion, name)
	return []string{
		fmt.Sprintf("https://mirrors.aliyun.com/apache/%s", path),
		fmt.Sprintf("https://archive.apache.org/dist/%s", path),
	}, name
}

// installMaven runs while the JDK task is still Installing. The Maven
// download is a companion task "java-{version}-maven" so its progress
// is observable separately from the JDK itself.
func (ji *JavaInstaller) installMaven(installDir, version string) error {
	mavenVersion := mavenVersionFor(version)
	urls, archiveName := mavenURLs(mavenVersion)
	mavenDir := filepath.Join(installDir, "maven")
	taskID := TaskID(models.TypeJava, version) + "-maven"

	err := ji.dm.StartDownload(taskID, urls, mavenDir, archiveName, true,
		func(task *models.DownloadTask) error {
			if err := ji.dm.SetStatus(task.ID, models.DownloadInstalling, ""); err != nil {
				return err
			}
			if err := utils.ExtractArchive(task.TargetPath, mavenDir); err != nil {
				return &models.InstallError{Step: "extract maven", Err: err}
			}
			utils.MarkExecutables(mavenDir)
			if err := writeMavenSettings(mavenDir); err != nil {
				return &models.InstallError{Step: "write settings.xml", Err: err}
			}
			return ji.dm.SetStatus(task.ID, models.DownloadInstalled, "")
		})
	if err != nil {
		return &models.InstallError{Step: "install maven " + mavenVersion, Err: err}
	}
	logger.Infof("Installed Maven %s alongside JDK %s", mavenVersion, version)
	return nil
}

// writeMavenSettings points Maven at the repository mirror configured
// through the MAVEN_REPO_URL environment variable the activation writer
// exports. An empty MAVEN_REPO_URL leaves resolution on Maven Central.
func writeMavenSettings(mavenDir string) error {
	settings := `<?xml version="1.0" encoding="UTF-8"?>
<settings xmlns="http://maven.apache.org/SETTINGS/1.2.0"
          xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
          xsi:schemaLocation="http://maven.apache.org/SETTINGS/1.2.0 https://maven.apache.org/xsd/settings-1.2.0.xsd">
  <mirrors>
    <mirror>
      <id>envis-mirror</id>
      <mirrorOf>central</mirrorOf>
      <url>${env.MAVEN_REPO_URL}</url>
    </mirror>
  </mirrors>
</settings>
`
	path := filepath.Join(mavenDir, "conf", "settings.xml")
	return utils.AtomicWriteFile(path, []byte(settings), 0o644)
}
