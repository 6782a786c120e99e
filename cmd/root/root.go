package root

import (
	"sync"

	"github.com/spf13/cobra"

	"envis/internal/config"
	"envis/services"
)

var RootCmd = &cobra.Command{
	Use:           "envis",
	Short:         "Local runtime and service environment manager",
	Long:          `envis provisions versioned runtimes and services (Node.js, databases, Nginx and more), groups them into named environments and activates one environment into your shell startup files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	appOnce sync.Once
	app     *services.App
	appErr  error
)

/**
 * Build the manager graph once per process
 * @returns {*services.App, error} Returns the shared application graph
 * @description
 * - Loads or initialises ~/.envis.json, then wires every manager in
 *   construction order
 * - CLI commands share one graph so manager mutexes actually serialise
 */
func App() (*services.App, error) {
	appOnce.Do(func() {
		var cfg *config.Store
		cfg, appErr = config.LoadOrInit("")
		if appErr != nil {
			return
		}
		app = services.NewApp(cfg, true)
	})
	return app, appErr
}
