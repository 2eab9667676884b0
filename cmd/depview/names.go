package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/depview/repr"
)

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "Look up the sources of a class or the classes of a source",
	Example: `  depview names --class com/example/Service
  depview names --source com/example/Service.java`,
	RunE: runNames,
}

func init() {
	namesCmd.Flags().String("class", "", "Internal class name, e.g. com/example/Service")
	namesCmd.Flags().String("source", "", "Source path relative to the source root")
}

func runNames(cmd *cobra.Command, _ []string) (err error) {
	className, _ := cmd.Flags().GetString("class")
	sourcePath, _ := cmd.Flags().GetString("source")
	if className == "" && sourcePath == "" {
		return errors.New("either --class or --source is required")
	}
	store, _, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, store.Close()) }()
	out := cmd.OutOrStdout()
	if className != "" {
		sources, err := store.GetSources(className)
		if err != nil {
			return err
		}
		for _, s := range sources {
			fmt.Fprintln(out, s)
		}
	}
	if sourcePath != "" {
		classes, err := store.GetClasses(sourcePath)
		if err != nil {
			return err
		}
		for _, c := range classes {
			if err := repr.DumpClassFile(store.Context(), out, c); err != nil {
				return err
			}
		}
	}
	return nil
}
