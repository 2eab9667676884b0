package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/viant/afs"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print every index of the store",
	Example: `  depview dump --store .depview
  depview dump --store .depview --output /tmp/indexes`,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringP("output", "o", "", "Directory URL receiving one file per index (default: stdout)")
}

func runDump(cmd *cobra.Command, _ []string) (err error) {
	ctx := cmd.Context()
	store, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, store.Close()) }()
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		return store.ToStream(cmd.OutOrStdout())
	}
	return store.DumpTo(ctx, afs.New(), output)
}
