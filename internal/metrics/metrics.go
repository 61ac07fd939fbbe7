package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once
	registry *prometheus.Registry
)

// Init creates and registers all metrics on a dedicated registry
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		registry = prometheus.NewRegistry()

		initOperationMetrics()
		registerOperationMetrics(registry)

		// Error counter appears in the textfile even when a run had no failures
		ErrorsTotal.Add(0)
	})
}

// Gatherer exposes the registry holding all sftp-tools metrics
func Gatherer() prometheus.Gatherer {
	Init()
	return registry
}

// WriteTextfile writes the current metrics in Prometheus text format for
// the node_exporter textfile collector. The write is atomic.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create textfile directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Gatherer()); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
