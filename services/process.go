package services

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"envis/internal/config"
	"envis/internal/logger"
	"envis/internal/models"
)

/**
 * ProcessController starts and stops service processes
 * @description
 * - One pid file per (env, type, version) next to the service data
 *   record; a stale pid file counts as not running
 * - Only long-running server types are startable; runtimes like nodejs
 *   or python have nothing to launch
 */
type ProcessController struct {
	cfg *config.Store
}

func NewProcessController(cfg *config.Store) *ProcessController {
	return &ProcessController{cfg: cfg}
}

func (p *ProcessController) pidPath(envID string, sd *models.ServiceData) string {
	return filepath.Join(p.cfg.EnvsDir(), envID, string(sd.ServiceType), sd.Version, "service.pid")
}

func (p *ProcessController) dataDir(envID string, sd *models.ServiceData) string {
	return filepath.Join(p.cfg.EnvsDir(), envID, string(sd.ServiceType), sd.Version, "data")
}

func (p *ProcessController) installDir(sd *models.ServiceData) string {
	return filepath.Join(p.cfg.ServicesDir(), string(sd.ServiceType), sd.Version)
}

func metadataPort(sd *models.ServiceData, fallback int) int {
	if v, ok := sd.Metadata["port"].(float64); ok {
		return int(v)
	}
	if v, ok := sd.Metadata["port"].(int); ok {
		return v
	}
	return fallback
}

// launchCommand builds the daemon command line per service type.
func (p *ProcessController) launchCommand(envID string, sd *models.ServiceData) (*exec.Cmd, error) {
	install := p.installDir(sd)
	data := p.dataDir(envID, sd)

	switch sd.ServiceType {
	case models.TypeMongoDB:
		return exec.Command(filepath.Join(install, "bin", "mongod"),
			"--dbpath", data,
			"--port", strconv.Itoa(metadataPort(sd, 27017)),
			"--bind_ip", "127.0.0.1"), nil
	case models.TypeMariaDB, models.TypeMySQL:
		return exec.Command(filepath.Join(install, "bin", "mysqld"),
			"--datadir="+data,
			"--port="+strconv.Itoa(metadataPort(sd, 3306)),
			"--socket="+filepath.Join(data, "mysql.sock")), nil
	case models.TypePostgreSQL:
		return exec.Command(filepath.Join(install, "bin", "postgres"),
			"-D", data,
			"-p", strconv.Itoa(metadataPort(sd, 5432))), nil
	case models.TypeNginx:
		return exec.Command(filepath.Join(install, "sbin", "nginx"),
			"-p", install, "-g", "daemon off;"), nil
	case models.TypeDnsmasq:
		return exec.Command(filepath.Join(install, "sbin", "dnsmasq"),
			"--keep-in-foreground",
			"--port", strconv.Itoa(metadataPort(sd, 53))), nil
	default:
		return nil, fmt.Errorf("service type '%s' has no runnable daemon", sd.ServiceType)
	}
}

/**
 * Start a service process in the background
 * @description
 * - The installation must exist; a running pid file is AlreadyExists
 * - stdout/stderr go to {data}/service.log
 */
func (p *ProcessController) Start(envID string, sd *models.ServiceData) (int, error) {
	if _, err := os.Stat(p.installDir(sd)); os.IsNotExist(err) {
		return 0, fmt.Errorf("installation %s %s: %w", sd.ServiceType, sd.Version, models.ErrNotFound)
	}
	if pid, running := p.runningPid(envID, sd); running {
		return pid, fmt.Errorf("%s %s already running (pid %d): %w",
			sd.ServiceType, sd.Version, pid, models.ErrAlreadyExists)
	}

	cmd, err := p.launchCommand(envID, sd)
	if err != nil {
		return 0, err
	}
	data := p.dataDir(envID, sd)
	if err := os.MkdirAll(data, 0o755); err != nil {
		return 0, err
	}
	logFile, err := os.OpenFile(filepath.Join(data, "service.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, err
	}
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		logFile.Close()
		return 0, err
	}
	logFile.Close()
	go cmd.Wait()

	pid := cmd.Process.Pid
	if err := os.WriteFile(p.pidPath(envID, sd), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		logger.Warnf("Write pid file for %s %s failed: %v", sd.ServiceType, sd.Version, err)
	}
	logger.Infof("Started %s %s (pid %d)", sd.ServiceType, sd.Version, pid)
	return pid, nil
}

// Stop terminates the recorded process and removes the pid file.
func (p *ProcessController) Stop(envID string, sd *models.ServiceData) error {
	pid, running := p.runningPid(envID, sd)
	if !running {
		return fmt.Errorf("%s %s is not running: %w", sd.ServiceType, sd.Version, models.ErrNotFound)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return err
	}
	os.Remove(p.pidPath(envID, sd))
	logger.Infof("Stopped %s %s (pid %d)", sd.ServiceType, sd.Version, pid)
	return nil
}

// Status reports the pid when the recorded process is still alive.
func (p *ProcessController) Status(envID string, sd *models.ServiceData) (pid int, running bool) {
	return p.runningPid(envID, sd)
}

func (p *ProcessController) runningPid(envID string, sd *models.ServiceData) (int, bool) {
	data, err := os.ReadFile(p.pidPath(envID, sd))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	// Signal 0 probes liveness without touching the process.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return pid, false
	}
	return pid, true
}
