package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addressbook-cli/internal/lookup"
)

var (
	fixturePort int
	fixtureFile string
)

var fixtureCmd = &cobra.Command{
	Use:   "fixture-server",
	Short: "Serve a local address lookup backed by a YAML fixture",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if fixturePort != 0 {
			cfg.Fixture.Port = fixturePort
		}
		if fixtureFile != "" {
			cfg.Fixture.Path = fixtureFile
		}
		if err := cfg.Validate("fixture"); err != nil {
			return err
		}

		fx, err := lookup.LoadFixture(cfg.Fixture.Path)
		if err != nil {
			return eris.Wrap(err, "fixture-server")
		}
		zap.L().Info("fixture loaded",
			zap.String("path", cfg.Fixture.Path),
			zap.Int("addresses", len(fx.Addresses)),
		)

		return serveHTTP(ctx, fmt.Sprintf(":%d", cfg.Fixture.Port), lookup.NewFixtureHandler(fx))
	},
}

func init() {
	fixtureCmd.Flags().IntVar(&fixturePort, "port", 0, "listen port (default from config)")
	fixtureCmd.Flags().StringVar(&fixtureFile, "file", "", "fixture YAML path (default from config)")
	rootCmd.AddCommand(fixtureCmd)
}
