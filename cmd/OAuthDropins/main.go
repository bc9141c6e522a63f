// Package main is the entry point of the OAuth drop-in service.
// It initializes the Kratos application with the HTTP server.
package main

import (
	"fmt"
	"os"

	"OAuthDropins/internal/conf"
	"OAuthDropins/internal/data"
	zapLogger "OAuthDropins/pkg/log"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/spf13/cobra"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "oauth-dropins"
	// Version is the version of the compiled software.
	Version = "dev"
	// flagconf is the config flag.
	flagconf string
	// flagaddr overrides server.http.addr.
	flagaddr string

	id, _ = os.Hostname()
)

var rootCmd = &cobra.Command{
	Use:   "oauth-dropins",
	Short: "OAuth drop-in service for reddit",
	Long: `oauth-dropins runs the reddit authorization handshake: it issues a state,
redirects users to reddit, verifies the callback and stores the resulting credential.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the credential tables",
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagconf, "conf", "", "config path, eg: --conf configs/config.yaml")
	rootCmd.PersistentFlags().StringVar(&flagaddr, "addr", "", "listen address, overrides server.http.addr")
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
	rootCmd.AddCommand(migrateCmd)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("%s %s\n", Name, Version)
			os.Exit(0)
		}
	}
}

func newApp(logger log.Logger, hs *http.Server) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(hs),
	)
}

// setup loads configuration and builds the logger shared by every command.
func setup() (*conf.Bootstrap, log.Logger, func(), error) {
	// Load configuration using Viper with environment variable and CLI flag support
	bc, err := conf.NewBootstrap(flagconf)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if flagaddr != "" {
		bc.Server.HTTP.Addr = flagaddr
	}

	zapLog, err := zapLogger.NewZapLogger(bc.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize zap logger: %w", err)
	}

	logger := log.With(zapLogger.NewKratosAdapter(zapLog),
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)
	return bc, logger, func() { _ = zapLog.Sync() }, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	bc, logger, syncLog, err := setup()
	if err != nil {
		return err
	}
	defer syncLog()

	zapLogger.NewLogHelper(logger).Startup("oauth-dropins service starting",
		"http.addr", bc.Server.HTTP.Addr,
		"reddit.callback_path", bc.Reddit.CallbackPath,
		"reddit.proxy", bc.Reddit.ProxyURL != "",
		"log.level", bc.Log.Level,
		"log.format", bc.Log.Format,
	)

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Auth, bc.Reddit, bc.OAuth, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// start and wait for stop signal
	return app.Run()
}

func runMigrate(cmd *cobra.Command, args []string) error {
	bc, logger, syncLog, err := setup()
	if err != nil {
		return err
	}
	defer syncLog()

	db, cleanup, err := data.NewMySQLClient(bc.Data, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := data.Migrate(db); err != nil {
		return err
	}
	zapLogger.NewLogHelper(logger).Startup("credential tables migrated")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
