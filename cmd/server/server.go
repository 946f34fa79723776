package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stephnangue/fedgate/config"
	"github.com/stephnangue/fedgate/core"
	"github.com/stephnangue/fedgate/directory"
	fedgatehttp "github.com/stephnangue/fedgate/http"
	"github.com/stephnangue/fedgate/keystone"
	"github.com/stephnangue/fedgate/listener/api"
	"github.com/stephnangue/fedgate/logger"
)

var (
	configPath string

	ServerCmd = &cobra.Command{
		Use:   "server",
		Short: "This command starts a fedgate server that responds to API requests",
		Long: `
Usage: fedgate server [options]

  This command starts a fedgate server that responds to login API requests.

  Start a server with a configuration file:

      $ fedgate server --config=/etc/fedgate/config.hcl
  `,
		RunE: run,
	}
)

func init() {
	ServerCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (e.g., path/to/fedgate.hcl)")
}

func run(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return fmt.Errorf("config file path is required. Use -c or --config flag")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", configPath)
	}

	conf, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := buildLogger(conf)
	defer log.Close()

	timeout, err := conf.Keystone.BackendTimeout()
	if err != nil {
		return err
	}

	dir := directory.New(log.WithSubsystem("directory"))

	backend := keystone.NewHTTPClient(keystone.HTTPClientConfig{
		AuthURL:       conf.Keystone.AuthURL,
		Timeout:       timeout,
		TLSSkipVerify: conf.Keystone.TLSSkipVerify,
		Logger:        log,
	})
	defer keystone.ShutdownTransport()

	c := core.NewCore(&core.CoreConfig{
		KeystoneConfig: conf.Keystone,
		Backend:        backend,
		Directory:      dir,
		Logger:         log,
	})

	handler := fedgatehttp.Handler(&fedgatehttp.HandlerProperties{
		Core:           c,
		Logger:         log.WithSubsystem("http"),
		BackendTimeout: timeout,
	})

	listenerConf, err := conf.GetApiListener()
	if err != nil {
		return err
	}

	apiListener, err := api.NewApiListener(api.ApiListenerConfig{
		Logger:      log,
		Address:     listenerConf.Address,
		TLSCertFile: listenerConf.TLSCertFile,
		TLSKeyFile:  listenerConf.TLSKeyFile,
		TLSEnabled:  listenerConf.TLSEnabled,
	}, handler)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("fedgate server starting",
		logger.String("auth_url", conf.Keystone.AuthURL),
		logger.Bool("multidomain", conf.Keystone.MultidomainSupport),
		logger.Bool("federated", conf.Keystone.FederatedURL != ""))

	return apiListener.Start(ctx)
}

func buildLogger(conf *config.Config) logger.Logger {
	logConfig := logger.DefaultConfig()
	logConfig.Level = logger.ParseLogLevel(conf.LogLevel)
	logConfig.Format = logger.ParseOutputFormat(conf.LogFormat)

	if conf.LogFile != "" {
		logConfig.Environment = "production"
		logConfig.FileConfig = &logger.FileConfig{
			Filename:   conf.LogFile,
			MaxSize:    conf.LogRotateMegabytes,
			MaxBackups: conf.LogRotateMaxFiles,
			Compress:   true,
		}
	}

	return logger.NewZerologLogger(logConfig)
}
