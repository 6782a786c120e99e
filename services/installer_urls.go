package services

import (
	"fmt"
	"runtime"

	"envis/internal/models"
)

// Static fallback version tables, newest first. Remote indexes are
// preferred where a service publishes one (Node.js).
var staticVersionTable = map[models.ServiceType][]string{
	models.TypeMongoDB:    {"8.0.4", "7.0.14", "6.0.19", "5.0.28"},
	models.TypeMariaDB:    {"11.4.4", "10.11.10", "10.6.20"},
	models.TypeMySQL:      {"9.1.0", "8.4.3", "8.0.40"},
	models.TypePostgreSQL: {"17.2", "16.6", "15.10"},
	models.TypeNginx:      {"1.27.3", "1.26.2", "1.24.0"},
	models.TypeNodejs:     {"22.12.0", "20.19.1", "18.20.5", "16.20.2", "14.21.3"},
	models.TypePython:     {"3.13.1", "3.12.8", "3.11.11"},
	models.TypeJava:       {"21.0.5", "17.0.13", "11.0.25", "8.0.432"},
	models.TypeDnsmasq:    {"2.90", "2.89"},
}

func staticVersions(t models.ServiceType) []models.VersionInfo {
	versions := staticVersionTable[t]
	out := make([]models.VersionInfo, 0, len(versions))
	for _, v := range versions {
		out = append(out, models.VersionInfo{Version: v})
	}
	return out
}

func archiveExt() string {
	if runtime.GOOS == "windows" {
		return "zip"
	}
	return "tar.gz"
}

func mariadbURLs(version string) ([]string, string, error) {
	osName := map[string]string{"linux": "linux-systemd", "darwin": "macos", "windows": "winx64"}[runtime.GOOS]
	if osName == "" {
		return nil, "", fmt.Errorf("mariadb: unsupported os %s", runtime.GOOS)
	}
	name := fmt.Sprintf("mariadb-%s-%s-x86_64.%s", version, osName, archiveExt())
	return []string{
		fmt.Sprintf("https://mirrors.aliyun.com/mariadb/mariadb-%s/bintar-%s-x86_64/%s", version, osName, name),
		fmt.Sprintf("https://archive.mariadb.org/mariadb-%s/bintar-%s-x86_64/%s", version, osName, name),
	}, name, nil
}

func mysqlURLs(version string) ([]string, string, error) {
	var platform string
	switch runtime.GOOS {
	case "linux":
		platform = "linux-glibc2.28-x86_64"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			platform = "macos14-arm64"
		} else {
			platform = "macos14-x86_64"
		}
	case "windows":
		platform = "winx64"
	default:
		return nil, "", fmt.Errorf("mysql: unsupported os %s", runtime.GOOS)
	}
	name := fmt.Sprintf("mysql-%s-%s.%s", version, platform, archiveExt())
	return []string{
		fmt.Sprintf("https://mirrors.aliyun.com/mysql/MySQL-8.0/%s", name),
		fmt.Sprintf("https://dev.mysql.com/get/Downloads/MySQL-8.0/%s", name),
	}, name, nil
}

func postgresqlURLs(version string) ([]string, string, error) {
	var platform string
	switch runtime.GOOS {
	case "linux":
		platform = "linux-x64-binaries"
	case "darwin":
		platform = "osx-binaries"
	case "windows":
		platform = "windows-x64-binaries"
	default:
		return nil, "", fmt.Errorf("postgresql: unsupported os %s", runtime.GOOS)
	}
	name := fmt.Sprintf("postgresql-%s-%s.zip", version, platform)
	return []string{
		fmt.Sprintf("https://get.enterprisedb.com/postgresql/%s", name),
	}, name, nil
}

func pythonURLs(version string) ([]string, string, error) {
	// python-build-standalone relocatable builds
	var triple string
	switch {
	case runtime.GOOS == "linux" && runtime.GOARCH == "amd64":
		triple = "x86_64-unknown-linux-gnu"
	case runtime.GOOS == "linux" && runtime.GOARCH == "arm64":
		triple = "aarch64-unknown-linux-gnu"
	case runtime.GOOS == "darwin" && runtime.GOARCH == "arm64":
		triple = "aarch64-apple-darwin"
	case runtime.GOOS == "darwin":
		triple = "x86_64-apple-darwin"
	case runtime.GOOS == "windows":
		triple = "x86_64-pc-windows-msvc"
	default:
		return nil, "", fmt.Errorf("python: unsupported platform %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	name := fmt.Sprintf("cpython-%s-%s-install_only.tar.gz", version, triple)
	return []string{
		fmt.Sprintf("https://github.com/astral-sh/python-build-standalone/releases/latest/download/%s", name),
	}, name, nil
}
