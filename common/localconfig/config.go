/*
Copyright The Horovod Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package localconfig loads the runtime configuration from an optional
// horovod.yaml file and the HOROVOD_* environment.
package localconfig

import (
	"os"
	"strings"
	"time"

	"github.com/hyperledger/fabric-lib-go/common/flogging"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var logger = flogging.MustGetLogger("common.localconfig")

// Prefix is the environment variable prefix for all config items.
const Prefix = "HOROVOD"

// Log configures the logging spec and format.
type Log struct {
	Spec   string
	Format string
}

// ProcessSets configures the dynamic process set machinery.
type ProcessSets struct {
	Dynamic      bool
	PollInterval time.Duration
}

// TopLevel directly corresponds to the horovod.yaml config file.
type TopLevel struct {
	Log         Log
	ProcessSets ProcessSets
}

var defaults = TopLevel{
	Log: Log{
		Spec:   "info",
		Format: "%{color}%{time:2006-01-02 15:04:05.000 MST} [%{module}] %{shortfunc} -> %{level:.4s} %{id:03x}%{color:reset} %{message}",
	},
	ProcessSets: ProcessSets{
		Dynamic:      false,
		PollInterval: 200 * time.Millisecond,
	},
}

func (c *TopLevel) completeInitialization() {
	for {
		switch {
		case c.Log.Spec == "":
			logger.Infof("Log.Spec unset, setting to %s", defaults.Log.Spec)
			c.Log.Spec = defaults.Log.Spec
		case c.Log.Format == "":
			c.Log.Format = defaults.Log.Format
		case c.ProcessSets.PollInterval == 0:
			logger.Infof("ProcessSets.PollInterval unset, setting to %s", defaults.ProcessSets.PollInterval)
			c.ProcessSets.PollInterval = defaults.ProcessSets.PollInterval
		default:
			return
		}
	}
}

// Load parses horovod.yaml (if present) and the environment, producing a
// struct suitable for config use.
func Load() (*TopLevel, error) {
	config := viper.New()

	config.SetConfigName("horovod")
	config.SetConfigType("yaml")
	if cfgPath := os.Getenv("HOROVOD_CFG_PATH"); cfgPath != "" {
		config.AddConfigPath(cfgPath)
	} else {
		config.AddConfigPath("./")
	}

	config.SetEnvPrefix(Prefix)
	config.AutomaticEnv()
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Viper only surfaces environment overrides for keys it knows about.
	config.SetDefault("log.spec", "")
	config.SetDefault("log.format", "")
	config.SetDefault("processsets.pollinterval", time.Duration(0))
	config.SetDefault("processsets.dynamic", false)

	// The switch historically spelled HOROVOD_DYNAMIC_PROCESS_SETS.
	if err := config.BindEnv("processsets.dynamic", "HOROVOD_DYNAMIC_PROCESS_SETS"); err != nil {
		return nil, errors.WithMessage(err, "error binding environment")
	}

	if err := config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.WithMessage(err, "error reading configuration")
		}
	}

	var uconf TopLevel
	if err := config.Unmarshal(&uconf); err != nil {
		return nil, errors.WithMessage(err, "error unmarshalling config into struct")
	}
	uconf.completeInitialization()
	return &uconf, nil
}
