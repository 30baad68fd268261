// Package config is responsible for initializing the application's configuration.
// It uses the Viper library to read settings from a config file, environment
// variables, and command-line flags, providing a unified configuration system.
package config

import (
	"errors"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/iconsync/internal/config"
	"github.com/JakeFAU/iconsync/internal/logging"
)

// InitConfig prepares the global Viper instance: defaults, environment
// bindings and the config file. An explicit file must exist; otherwise the
// search paths are tried and a missing file is not an error.
func InitConfig(cfgFile string) {
	v := viper.GetViper()
	config.Configure(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")               // Current working directory
		v.AddConfigPath("/etc/iconsync/")  // System-wide configuration
		v.AddConfigPath("$HOME/.iconsync") // User-specific configuration
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
		return
	}
	logging.L.Info("Using config file", zap.String("path", v.ConfigFileUsed()))
}
