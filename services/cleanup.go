package services

import (
	"envis/internal/config"
	"envis/internal/logger"
	"envis/internal/models"
)

/**
 * Exit sweep run when the process is asked to quit
 * @description
 * - Only runs when stop_all_services_on_exit is set
 * - Deactivates every Active environment with its services, then
 *   clears the managed block one final time
 * - Per-environment failures are logged and do not stop the sweep
 */
func CleanupOnExit(cfg *config.Store, envs *EnvironmentManager, shell *ShellManager) {
	if !cfg.Get().StopAllServicesOnExit {
		return
	}
	logger.Info("Stopping all services before exit")

	all, err := envs.GetAll()
	if err != nil {
		logger.Errorf("List environments for exit cleanup failed: %v", err)
	}
	for i := range all {
		if all[i].Status != models.StatusActive {
			continue
		}
		if err := envs.DeactivateWithServices(&all[i], ""); err != nil {
			logger.Warnf("Deactivate environment '%s' on exit failed: %v", all[i].Name, err)
		}
	}
	if err := shell.ClearBlockContent(); err != nil {
		logger.Warnf("Clear managed block on exit failed: %v", err)
	}
}
