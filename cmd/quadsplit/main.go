// Command quadsplit refines polygon meshes into all-quad meshes, cleans
// triangle soups and runs mesh pipeline scripts.
package main

import (
	"os"

	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger, _ := zap.NewProduction()
		logger.Error("quadsplit failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
