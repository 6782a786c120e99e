package main

import (
	"fmt"
	"os"

	_ "envis/cmd"
	"envis/cmd/root"
	"envis/internal/logger"
)

func main() {
	// 服务器模式下日志同时输出到stdout
	isServerMode := len(os.Args) > 1 && os.Args[1] == "server"
	logger.InitLogger("", os.Getenv("ENVIS_LOG_LEVEL"), isServerMode)

	if err := root.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	os.Exit(0)
}
