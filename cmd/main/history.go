package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/CTAG07/Nepenthes/pkg/manifest"
)

func (a *app) historyCmd() *cobra.Command {
	var (
		limit   int
		buildID int64
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Lists recorded builds, or the outputs of one build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, logger, err := a.setup(cmd)
			if err != nil {
				return err
			}
			store, closeDB, err := openManifest(config.App.ManifestPath, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			if buildID != 0 {
				outputs, err := store.Outputs(cmd.Context(), buildID)
				if err != nil {
					return err
				}
				return printOutputs(cmd.OutOrStdout(), outputs)
			}
			builds, err := store.Builds(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printBuilds(cmd.OutOrStdout(), builds)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of builds to list, 0 for all")
	cmd.Flags().Int64VarP(&buildID, "build", "b", 0, "list the outputs of this build")
	return cmd
}

func printBuilds(w io.Writer, builds []manifest.BuildInfo) error {
	if len(builds) == 0 {
		_, err := fmt.Fprintln(w, "No builds recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tSTATUS\tFILES\tSOURCE\tTARGET")
	for _, b := range builds {
		duration := "-"
		if !b.FinishedAt.IsZero() {
			duration = b.FinishedAt.Sub(b.StartedAt).Round(time.Millisecond).String()
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			b.ID, b.StartedAt.Format(time.DateTime), duration, b.Status, b.FileCount, b.SourceDir, b.TargetDir)
	}
	return tw.Flush()
}

func printOutputs(w io.Writer, outputs []manifest.Output) error {
	if len(outputs) == 0 {
		_, err := fmt.Fprintln(w, "No outputs recorded for this build.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TARGET\tACTION\tSIZE\tSHA256\tSOURCE")
	for _, o := range outputs {
		sum := o.SHA256
		if len(sum) > 12 {
			sum = sum[:12]
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			o.TargetPath, o.Action, humanize.Bytes(uint64(o.Size)), sum, o.SourcePath)
	}
	return tw.Flush()
}
