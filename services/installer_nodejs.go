package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"

	"envis/internal/logger"
	"envis/internal/models"
)

// Node.js mirror order. The aliyun mirror is tried first, the official
// origin second, the university mirrors last.
var nodejsMirrors = []string{
	"https://mirrors.aliyun.com/nodejs-release",
	"https://nodejs.org/dist",
	"https://mirrors.tuna.tsinghua.edu.cn/nodejs-release",
	"https://registry.npmmirror.com/-/binary/node",
}

type NodejsInstaller struct {
	*StandardInstaller
}

func NewNodejsInstaller(servicesDir string, dm *DownloadManager) *NodejsInstaller {
	ni := &NodejsInstaller{}
	ni.StandardInstaller = NewStandardInstaller(
		models.TypeNodejs, servicesDir, dm, nodejsURLs, fetchNodejsVersions)
	return ni
}

/**
 * Compute the Node.js artifact URL set for one version
 * @description
 * - 14.x on arm64 macOS maps to the x64 build: Node 14 never shipped
 *   darwin-arm64 binaries and the x64 build runs under Rosetta
 */
func nodejsURLs(version string) ([]string, string, error) {
	version = strings.TrimPrefix(version, "v")
	osName := runtime.GOOS
	arch := runtime.GOARCH
	if arch == "amd64" {
		arch = "x64"
	}
	if osName == "darwin" && arch == "arm64" {
		if v, err := goversion.NewVersion(version); err == nil && v.Segments()[0] <= 14 {
			arch = "x64"
		}
	}
	var name string
	if osName == "windows" {
		name = fmt.Sprintf("node-v%s-win-%s.zip", version, arch)
	} else {
		name = fmt.Sprintf("node-v%s-%s-%s.tar.gz", version, osName, arch)
	}
	urls := make([]string, 0, len(nodejsMirrors))
	for _, mirror := range nodejsMirrors {
		urls = append(urls, fmt.Sprintf("%s/v%s/%s", mirror, version, name))
	}
	return urls, name, nil
}

// fetchNodejsVersions reads the upstream dist index, falling back to the
// static table when offline.
func fetchNodejsVersions() ([]models.VersionInfo, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get("https://nodejs.org/dist/index.json")
	if err != nil {
		logger.Warnf("Fetch nodejs index failed, using static table: %v", err)
		return staticVersions(models.TypeNodejs), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return staticVersions(models.TypeNodejs), nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return staticVersions(models.TypeNodejs), nil
	}
	var idx []struct {
		Version string          `json:"version"`
		Date    string          `json:"date"`
		LTS     json.RawMessage `json:"lts"`
	}
	if err := json.Unmarshal(body, &idx); err != nil {
		return staticVersions(models.TypeNodejs), nil
	}
	out := make([]models.VersionInfo, 0, len(idx))
	for _, entry := range idx {
		info := models.VersionInfo{
			Version: strings.TrimPrefix(entry.Version, "v"),
			Date:    entry.Date,
		}
		var lts string
		if json.Unmarshal(entry.LTS, &lts) == nil {
			info.LTS = lts
		}
		out = append(out, info)
	}
	return out, nil
}
