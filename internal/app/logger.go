package app

import (
	"strings"

	"github.com/homelearnhq/homelearn/pkg/logger"
)

// ConfigureLogging initialises the global logger at the configured level,
// defaulting to info.
func ConfigureLogging(level string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	return logger.Init(level)
}
