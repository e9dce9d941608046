// Package swarmcfg loads a swarm.Config from a file or the environment,
// the viper-backed analogue of utils.Config in the teacher repo (a bare
// struct literal with no file/env loading path at all).
package swarmcfg

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/nightfoundry/swarm"
)

// Load reads a config file at path (any format viper supports: yaml, json,
// toml) and decodes it over swarm.DefaultConfig(), so a file only needs to
// set the fields it wants to override.
func Load(path string) (swarm.Config, error) {
	cfg := swarm.DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	bindDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		return swarm.Config{}, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return swarm.Config{}, err
	}
	return cfg, nil
}

// LoadEnv builds a config from swarm.DefaultConfig() overridden by
// environment variables under prefix (e.g. prefix "SWARM" recognizes
// SWARM_WORKERTHREADS, SWARM_MAILBOXCAPACITY, SWARM_SUPERVISOR_STRATEGY,
// ...), mirroring the env-override convention viper.AutomaticEnv enables.
func LoadEnv(prefix string) (swarm.Config, error) {
	cfg := swarm.DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindDefaults(v, cfg)

	if err := v.Unmarshal(&cfg); err != nil {
		return swarm.Config{}, err
	}
	return cfg, nil
}

// bindDefaults seeds v with cfg's current values so fields absent from a
// config file or the environment fall back to swarm.DefaultConfig() rather
// than the zero value.
func bindDefaults(v *viper.Viper, cfg swarm.Config) {
	v.SetDefault("workerthreads", cfg.WorkerThreads)
	v.SetDefault("mailboxcapacity", cfg.MailboxCapacity)
	v.SetDefault("messagepoolcapacity", cfg.MessagePoolCapacity)
	v.SetDefault("maxmessagesperquantum", cfg.MaxMessagesPerQuantum)
	v.SetDefault("quantumbudget", cfg.QuantumBudget)
	v.SetDefault("enableworkstealing", cfg.EnableWorkStealing)
	v.SetDefault("maxactors", cfg.MaxActors)
	v.SetDefault("shutdowntimeout", cfg.ShutdownTimeout)

	v.SetDefault("supervisor.strategy", int(cfg.Supervisor.Strategy))
	v.SetDefault("supervisor.maxrestarts", cfg.Supervisor.MaxRestarts)
	v.SetDefault("supervisor.restartwindow", cfg.Supervisor.RestartWindow)
	v.SetDefault("supervisor.backoffinitial", cfg.Supervisor.BackoffInitial)
	v.SetDefault("supervisor.backoffmax", cfg.Supervisor.BackoffMax)
	v.SetDefault("supervisor.backoffmultiplier", cfg.Supervisor.BackoffMultiplier)
}
