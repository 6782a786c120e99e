package models

import (
	"path/filepath"
	"runtime"
)

// ServiceType is the closed tag set of manageable service kinds.
type ServiceType string

const (
	TypeMongoDB    ServiceType = "mongodb"
	TypeMariaDB    ServiceType = "mariadb"
	TypeMySQL      ServiceType = "mysql"
	TypePostgreSQL ServiceType = "postgresql"
	TypeNginx      ServiceType = "nginx"
	TypeNodejs     ServiceType = "nodejs"
	TypePython     ServiceType = "python"
	TypeJava       ServiceType = "java"
	TypeCustom     ServiceType = "custom"
	TypeHost       ServiceType = "host"
	TypeSSL        ServiceType = "ssl"
	TypeDnsmasq    ServiceType = "dnsmasq"
)

// AllServiceTypes lists every known service type in display order.
var AllServiceTypes = []ServiceType{
	TypeMongoDB, TypeMariaDB, TypeMySQL, TypePostgreSQL,
	TypeNginx, TypeNodejs, TypePython, TypeJava,
	TypeCustom, TypeHost, TypeSSL, TypeDnsmasq,
}

var defaultLabels = map[ServiceType]string{
	TypeMongoDB:    "MongoDB",
	TypeMariaDB:    "MariaDB",
	TypeMySQL:      "MySQL",
	TypePostgreSQL: "PostgreSQL",
	TypeNginx:      "Nginx",
	TypeNodejs:     "Node.js",
	TypePython:     "Python",
	TypeJava:       "Java",
	TypeCustom:     "Custom",
	TypeHost:       "Hosts",
	TypeSSL:        "SSL",
	TypeDnsmasq:    "Dnsmasq",
}

func (t ServiceType) Valid() bool {
	_, ok := defaultLabels[t]
	return ok
}

// DefaultLabel returns the human readable name used when a new
// service data record is created.
func (t ServiceType) DefaultLabel() string {
	if label, ok := defaultLabels[t]; ok {
		return label
	}
	return string(t)
}

/**
 * BinSubDirs returns the installation sub-directories that contribute to PATH
 * @returns {[]string} Relative sub-paths under the installation directory, nil when the type adds nothing to PATH
 * @description
 * - mongodb/mariadb/mysql/postgresql/python/java contribute bin
 * - nginx/dnsmasq contribute sbin
 * - nodejs contributes bin on Unix, the install root on Windows
 * - custom/host/ssl contribute nothing
 */
func (t ServiceType) BinSubDirs() []string {
	switch t {
	case TypeMongoDB, TypeMariaDB, TypeMySQL, TypePostgreSQL, TypePython, TypeJava:
		return []string{"bin"}
	case TypeNginx, TypeDnsmasq:
		return []string{"sbin"}
	case TypeNodejs:
		if runtime.GOOS == "windows" {
			return []string{""}
		}
		return []string{"bin"}
	default:
		return nil
	}
}

/**
 * EnvVars returns the environment variables populated at activation time
 * @param {string} installDir - Absolute shared installation directory of the (type, version) pair
 * @returns {map[string]string} Variable name to value
 */
func (t ServiceType) EnvVars(installDir string) map[string]string {
	switch t {
	case TypeNodejs:
		return map[string]string{
			"NODE_PATH":         filepath.Join(installDir, "lib", "node_modules"),
			"NPM_CONFIG_PREFIX": installDir,
		}
	case TypeNginx:
		return map[string]string{
			"NGINX_HOME": installDir,
			"NGINX_CONF": filepath.Join(installDir, "conf", "nginx.conf"),
		}
	case TypePython:
		return map[string]string{
			"PYTHONPATH": filepath.Join(installDir, "lib"),
		}
	case TypeJava:
		return map[string]string{
			"JAVA_HOME":      installDir,
			"JAVA_OPTS":      "",
			"MAVEN_HOME":     filepath.Join(installDir, "maven"),
			"MAVEN_REPO_URL": "",
			"GRADLE_HOME":    filepath.Join(installDir, "gradle"),
		}
	default:
		return nil
	}
}

// VersionInfo describes one installable version of a service.
type VersionInfo struct {
	Version string `json:"version"`
	LTS     string `json:"lts,omitempty"`
	Date    string `json:"date,omitempty"`
}
