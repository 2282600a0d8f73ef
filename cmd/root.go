package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/internal/config"
	"github.com/sightline9/a11y-cli/internal/observability"
)

// NewRootCommand builds the command tree. Each invocation gets a fresh tree
// so flag state never leaks between runs.
func NewRootCommand() *cobra.Command {
	var cfgFile string
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "a11y",
		Short:         "a11y audits web pages for accessibility defects",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				// Fall back so the failure itself gets logged somewhere.
				observability.InitializeLogger(config.NewDefault().Logger)
				return err
			}
			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Info("Starting a11y-cli", zap.String("version", Version))
			cmd.SetContext(withConfig(cmd.Context(), cfg, v))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newAuditCmd(v))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the CLI with the signal-aware context from main.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}
	return nil
}

// configKey carries the loaded config through the command context.
type contextKey struct{ name string }

var configKey = contextKey{"config"}

type configHolder struct {
	cfg *config.Config
	v   *viper.Viper
}

func withConfig(ctx context.Context, cfg *config.Config, v *viper.Viper) context.Context {
	return context.WithValue(ctx, configKey, &configHolder{cfg: cfg, v: v})
}

func configFromContext(ctx context.Context) *config.Config {
	if h, ok := ctx.Value(configKey).(*configHolder); ok {
		return h.cfg
	}
	return config.NewDefault()
}
