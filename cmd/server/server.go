package server

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"envis/cmd/root"
	"envis/controllers"
	"envis/internal/env"
	"envis/internal/logger"
	"envis/internal/middleware"
	"envis/services"
)

var listenAddr string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the HTTP facade for the desktop front end",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startServer()
	},
}

/**
 * Start the HTTP facade
 * @description
 * - Serves the REST API, the readiness probe and /metrics
 * - On SIGINT/SIGTERM the exit sweep runs before the process leaves,
 *   honouring stop_all_services_on_exit
 */
func startServer() error {
	app, err := root.App()
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.MetricsMiddleware())

	controllers.NewAPIController(app).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		logger.Infof("Received %s, shutting down", sig)
		services.CleanupOnExit(app.Cfg, app.Environments, app.Shell)
		os.Exit(0)
	}()

	addr := listenAddr
	if addr == "" {
		port := env.ListenPort
		if port == 0 {
			port = 17890
		}
		addr = fmt.Sprintf("127.0.0.1:%d", port)
	}
	logger.Infof("Envis server listening on %s", addr)
	return router.Run(addr)
}

func init() {
	root.RootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address (default 127.0.0.1:<port>)")
}
