package cli

import (
	"fmt"

	"github.com/harun/redclaw/internal/config"
	"github.com/harun/redclaw/internal/daemon"
	"github.com/harun/redclaw/internal/logger"
)

// loadConfig reads the config file and applies the --log-level override.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", opts.cfgFile, err)
	}
	if opts.logLevel != "" {
		if err := config.NewValidator().ValidateLogLevel(opts.logLevel); err != nil {
			return nil, err
		}
		cfg.Logging.Level = opts.logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger. Terminal modes keep stderr quiet
// unless --log-level was given, so log lines do not interleave with replies.
func newLogger(cfg *config.Config, opts *rootOptions, console bool) (*logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      config.ExpandHome(cfg.Logging.File),
		Console:   console || opts.logLevel != "",
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

// newDaemon loads the config and builds the core modules.
func newDaemon(opts *rootOptions, console bool) (*daemon.Daemon, *logger.Logger, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg, opts, console)
	if err != nil {
		return nil, nil, err
	}
	d, err := daemon.New(cfg, log, version)
	if err != nil {
		log.Close()
		return nil, nil, err
	}
	return d, log, nil
}
