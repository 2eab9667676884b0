package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/afs"
	"github.com/viant/depview/source"
	"gopkg.in/yaml.v3"
)

var importsCmd = &cobra.Command{
	Use:     "imports [source root]",
	Short:   "List the package, types and imports of every Java source",
	Example: `  depview imports src/main/java`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runImports,
}

func runImports(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fs := afs.New()
	cfg, err := loadConfig(ctx, fs)
	if err != nil {
		return err
	}
	root := cfg.SourceRoot
	if len(args) > 0 {
		root = args[0]
	}
	if root == "" {
		return fmt.Errorf("source root is required")
	}
	units, err := source.NewScanner(source.WithFileSystem(fs), source.WithSkipDirs(cfg.SkipDirs...)).Scan(ctx, root)
	if err != nil {
		return err
	}
	encoder := yaml.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent(2)
	if err = encoder.Encode(units); err != nil {
		return fmt.Errorf("failed to encode units: %w", err)
	}
	return encoder.Close()
}
