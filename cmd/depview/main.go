// Command depview inspects a Java dependency store and the sources feeding it.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/viant/afs"
	"github.com/viant/depview/config"
	"github.com/viant/depview/mappings"
)

var rootCmd = &cobra.Command{
	Use:           "depview",
	Short:         "Inspect incremental Java dependency stores",
	Long:          `depview reads the class dependency indexes used to decide which Java sources to recompile.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML config URL")
	rootCmd.PersistentFlags().StringP("store", "s", "", "Store directory (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.SetEnvPrefix("DEPVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(importsCmd)
	rootCmd.AddCommand(namesCmd)
}

// loadConfig resolves the config document and applies flag and environment overrides.
func loadConfig(ctx context.Context, fs afs.Service) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if URL := viper.GetString("config"); URL != "" {
		loaded, err := config.Load(ctx, fs, URL)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if store := viper.GetString("store"); store != "" {
		cfg.StorePath = store
	}
	if level := viper.GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, cfg.Validate()
}

// openStore opens the configured store; callers close it.
func openStore(ctx context.Context) (*mappings.Mappings, *config.Config, error) {
	fs := afs.New()
	cfg, err := loadConfig(ctx, fs)
	if err != nil {
		return nil, nil, err
	}
	store, err := mappings.New(cfg.StorePath, cfg.Options(fs, cfg.Logger(os.Stderr))...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store %v: %w", cfg.StorePath, err)
	}
	return store, cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "depview:", err)
		os.Exit(1)
	}
}
