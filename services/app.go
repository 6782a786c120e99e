package services

import (
	"envis/internal/config"
	"envis/internal/env"
)

/**
 * App wires the manager graph in its construction order
 * @description
 * - AppConfig first, then shell, hosts, service data, environments,
 *   downloads and installers, certificates last
 * - CLI commands and the HTTP facade both run against one App
 */
type App struct {
	Cfg          *config.Store
	Shell        *ShellManager
	Hosts        *HostsManager
	ServiceData  *ServiceDataManager
	Environments *EnvironmentManager
	Downloads    *DownloadManager
	Installers   *InstallerRegistry
	Certs        *CertManager
	Processes    *ProcessController
}

func NewApp(cfg *config.Store, prod bool) *App {
	shell := NewShellManager(DefaultShellTargets(prod), env.ExecutableDir())
	hosts := NewHostsManager()
	sds := NewServiceDataManager(cfg, shell, hosts)
	envs := NewEnvironmentManager(cfg, shell, sds)
	dm := NewDownloadManager()

	return &App{
		Cfg:          cfg,
		Shell:        shell,
		Hosts:        hosts,
		ServiceData:  sds,
		Environments: envs,
		Downloads:    dm,
		Installers:   NewInstallerRegistry(cfg.ServicesDir(), dm),
		Certs:        NewCertManager(cfg),
		Processes:    NewProcessController(cfg),
	}
}
