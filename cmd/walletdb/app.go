package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"goa.design/clue/log"

	"github.com/guildwallet/walletdb/config"
	walletmongo "github.com/guildwallet/walletdb/store/mongo"
	clientsmongo "github.com/guildwallet/walletdb/store/mongo/clients/mongo"
	"github.com/guildwallet/walletdb/telemetry"
)

// app holds the state shared by the commands.
type app struct {
	configPath string
	debug      bool

	// loadConfig and openClient are replaced in tests.
	loadConfig func(path string) (config.Config, error)
	openClient func(cfg config.Config) (clientsmongo.Client, error)
}

func newApp() *app {
	return &app{
		loadConfig: config.Load,
		openClient: func(cfg config.Config) (clientsmongo.Client, error) {
			return clientsmongo.New(clientsmongo.Options{
				URI:     cfg.URI(),
				AppName: cfg.AppName,
				Timeout: cfg.Timeout,
			})
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "walletdb",
		Short:         "Administer the wallet and guild document stores",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if a.debug {
				ctx := log.Context(cmd.Context(), log.WithDebug())
				log.Debugf(ctx, "debug logs enabled")
				cmd.SetContext(ctx)
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file (overrides "+config.FileEnv+")")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logs")

	root.AddCommand(
		newServeCmd(a),
		newPingCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newPutCmd(a),
		newRemoveCmd(a),
		newIncCmd(a),
		newSetCmd(a),
		newPushCmd(a),
		newKeyCmd(a),
	)
	return root
}

// open loads the configuration and builds the store. The connection is
// established lazily by the first operation.
func (a *app) open(ctx context.Context) (*walletmongo.Store, config.Config, error) {
	cfg, err := a.loadConfig(a.configPath)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("load config: %w", err)
	}
	client, err := a.openClient(cfg)
	if err != nil {
		return nil, config.Config{}, err
	}
	s, err := walletmongo.NewStore(walletmongo.Options{
		Client:         client,
		WalletDatabase: cfg.WalletDatabase,
		Logger:         telemetry.NewClueLogger(),
		Metrics:        telemetry.NewClueMetrics(),
		Tracer:         telemetry.NewClueTracer(),
	})
	if err != nil {
		return nil, config.Config{}, err
	}
	log.Debug(ctx, log.KV{K: "uri", V: cfg.Redacted()}, log.KV{K: "wallet-db", V: cfg.WalletDatabase})
	return s, cfg, nil
}

// withStore opens the store, runs fn and closes the store.
func (a *app) withStore(cmd *cobra.Command, fn func(ctx context.Context, s *walletmongo.Store) error) error {
	ctx := cmd.Context()
	s, _, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(ctx); err != nil {
			log.Errorf(ctx, err, "close store")
		}
	}()
	return fn(ctx, s)
}
