// -- cmd/run.go --
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/okazakidev/adjutant/internal/assistant"
	"github.com/okazakidev/adjutant/internal/browser"
	"github.com/okazakidev/adjutant/internal/config"
	"github.com/okazakidev/adjutant/internal/execute"
	"github.com/okazakidev/adjutant/internal/interpret"
	"github.com/okazakidev/adjutant/internal/llm"
	"github.com/okazakidev/adjutant/internal/observability"
	"github.com/okazakidev/adjutant/internal/permissions"
	"github.com/okazakidev/adjutant/internal/search"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive assistant loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewConfigFromViper(viper.GetViper())
		if err != nil {
			return err
		}
		return runAssistant(cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// runAssistant wires the whole pipeline and drives it until exit. All
// components are constructed here, passed by reference, and torn down on
// return; nothing lives in package-level state.
func runAssistant(cfg *config.Config) error {
	logger := observability.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := llm.NewClient(cfg.LLMC, logger)
	if err != nil {
		return err
	}

	collab := execute.Collaborators{
		Searcher: search.New(cfg.SearchC, logger),
	}

	// Browser loss is degradation, not failure: screen analysis and text
	// injection report unavailability instead.
	session := browser.NewSession(cfg.BrowserC, logger)
	if cfg.BrowserC.Enabled {
		if err := session.Start(ctx); err != nil {
			logger.Warn("Browser session unavailable, vision and typing disabled", zap.Error(err))
		} else {
			defer session.Close()
			collab.Opener = session
			collab.Capturer = session
			collab.Typist = session
		}
	}

	executor, err := execute.New(cfg, logger, client, collab)
	if err != nil {
		return err
	}

	interp := interpret.New(client, logger)
	perms := permissions.NewStore(
		filepath.Join(cfg.WorkspaceC.Root, cfg.WorkspaceC.PermissionsFile), logger)

	loop := assistant.New(cfg, logger, interp, executor, perms, assistant.Status{
		BrowserLive:     session.Live(),
		SearchAvailable: true,
		WorkspaceRoot:   cfg.WorkspaceC.Root,
	}, os.Stdin, os.Stdout)

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
