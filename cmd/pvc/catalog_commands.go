package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Synchronize the crawler catalog into the queue",
	}

	catalogCmd.AddCommand(newCatalogDiffCommand(ctx))
	catalogCmd.AddCommand(newCatalogSyncCommand(ctx))
	catalogCmd.AddCommand(newCatalogBackfillCommand(ctx))

	return catalogCmd
}

func newCatalogDiffCommand(ctx *commandContext) *cobra.Command {
	var (
		verbose bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Count new and modified catalog files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				syncer, err := a.syncer()
				if err != nil {
					return err
				}
				diff, err := syncer.Changes(c)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, diff)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "New: %d  Changed: %d  Total: %d\n", len(diff.New), len(diff.Changed), diff.Count())
				if verbose {
					for _, path := range diff.New {
						fmt.Fprintf(out, "  + %s\n", path)
					}
					for _, path := range diff.Changed {
						fmt.Fprintf(out, "  ~ %s\n", path)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List affected paths")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCatalogSyncCommand(ctx *commandContext) *cobra.Command {
	var (
		full bool
		yes  bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Insert new catalog files, or rebuild the queue with --full",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				syncer, err := a.syncer()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !full {
					inserted, err := syncer.SyncNew(c)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Inserted %d new job(s)\n", inserted)
					return nil
				}

				diff, err := syncer.Changes(c)
				if err != nil {
					return err
				}
				if diff.Count() == 0 {
					fmt.Fprintln(out, "Catalog unchanged; nothing to resync")
					return nil
				}
				if !yes {
					prompt := fmt.Sprintf("%d new or modified file(s). Rebuilding discards all job state. Continue?", diff.Count())
					if !confirm(cmd, prompt) {
						fmt.Fprintln(out, "Aborted")
						return nil
					}
				}
				inserted, err := syncer.Resync(c)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Rebuilt queue with %d job(s); run `pvc catalog backfill` to estimate sizes\n", inserted)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Delete every job and rebuild from the catalog")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func newCatalogBackfillCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Estimate sizes for jobs that have none",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				syncer, err := a.syncer()
				if err != nil {
					return err
				}
				updated, err := syncer.Backfill(c)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Estimated %d job(s)\n", updated)
				return nil
			})
		},
	}
}
