package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"plexconverter/internal/queue"
	"plexconverter/internal/services"
	"plexconverter/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and order conversion jobs",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClaimCommand(ctx))
	queueCmd.AddCommand(newQueueFinishCommand(ctx, "complete", "Mark a processing job as completed"))
	queueCmd.AddCommand(newQueueFinishCommand(ctx, "release", "Return a processing job to pending"))
	queueCmd.AddCommand(newQueueReclaimCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var (
		statuses []string
		search   string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in queue order, unqueued jobs last",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := queue.Filter{Search: search}
			for _, raw := range statuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return services.Wrap(services.ErrValidation, "cli", "queue list", fmt.Sprintf("unknown status %q", raw), nil)
				}
				filter.Statuses = append(filter.Statuses, status)
			}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				jobs, err := a.queue.List(c, filter)
				if err != nil {
					return err
				}
				if asJSON {
					if jobs == nil {
						jobs = []*queue.Job{}
					}
					return writeJSON(cmd, jobs)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Pos", "ID", "File", "Codec", "Size", "Est. Saved", "Status", "Worker"},
					buildJobRows(jobs),
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().StringVar(&search, "search", "", "Match file names or status text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func buildJobRows(jobs []*queue.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		worker := "-"
		if job.WorkerID != "" {
			worker = job.WorkerID
		}
		codec := job.VideoCodec
		if codec == "" {
			codec = "-"
		}
		rows = append(rows, []string{
			formatPosition(job.Position),
			strconv.FormatInt(job.ID, 10),
			job.FileName,
			codec,
			formatGB(job.OriginalSize),
			formatOptionalGB(job.SpaceSaved),
			statusLabel(string(job.Status)),
			worker,
		})
	}
	return rows
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show job counts and savings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				summary, err := a.queue.Summary(c)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, summary)
				}
				if summary.Total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(queue.AllStatuses())+3)
				for _, status := range queue.AllStatuses() {
					rows = append(rows, []string{statusLabel(string(status)), strconv.Itoa(summary.Counts[status])})
				}
				rows = append(rows,
					[]string{"Total", strconv.Itoa(summary.Total)},
					[]string{"Saved", formatGB(summary.Saved)},
					[]string{"Potential Savings", formatGB(summary.PendingEstimate)},
				)
				if summary.Unestimated > 0 {
					rows = append(rows, []string{"Awaiting Estimate", strconv.Itoa(summary.Unestimated)})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Status", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var (
		priority bool
		sorted   bool
	)

	cmd := &cobra.Command{
		Use:   "add <path>...",
		Short: "Queue pending jobs by file path",
		Long: "Queue pending jobs by file path. Paths are placed in the order given; " +
			"--sort orders them lexicographically first. Already queued paths are moved.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := append([]string(nil), args...)
			if sorted {
				sort.Strings(paths)
			}
			mode := queue.ModeAppend
			if priority {
				mode = queue.ModePriority
			}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				result, err := a.queue.Enqueue(c, paths, mode)
				if err != nil {
					return err
				}
				printBatch(cmd, result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&priority, "priority", false, "Place jobs at the front of the queue")
	cmd.Flags().BoolVar(&sorted, "sort", false, "Sort paths lexicographically before queueing")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>...",
		Short: "Return queued jobs to pending",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				result, err := a.queue.Dequeue(c, args)
				if err != nil {
					return err
				}
				printBatch(cmd, result)
				return nil
			})
		},
	}
}

func printBatch(cmd *cobra.Command, result queue.BatchResult) {
	out := cmd.OutOrStdout()
	for _, res := range result.Results {
		switch res.Outcome {
		case queue.OutcomeQueued:
			fmt.Fprintf(out, "%s: queued at position %d\n", res.Path, res.Position)
		case queue.OutcomeDequeued:
			fmt.Fprintf(out, "%s: returned to pending\n", res.Path)
		case queue.OutcomeNotFound:
			fmt.Fprintf(out, "%s: not found\n", res.Path)
		case queue.OutcomeIneligible:
			fmt.Fprintf(out, "%s: skipped (%s)\n", res.Path, res.Status)
		}
	}
}

func newQueueClaimCommand(ctx *commandContext) *cobra.Command {
	var (
		workerID string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim the next queued job for a worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				job, err := a.queue.ClaimNext(c, workerID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				if job == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No queued jobs")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Claimed job %d: %s\n", job.ID, job.FilePath)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&workerID, "worker", "", "Registered worker id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON (null when nothing is queued)")
	_ = cmd.MarkFlagRequired("worker")
	return cmd
}

func newQueueFinishCommand(ctx *commandContext, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <job-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				if use == "complete" {
					err = a.queue.Complete(c, id)
				} else {
					err = a.queue.Release(c, id)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d %sd\n", id, use)
				return nil
			})
		},
	}
}

func parseJobID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.Wrap(services.ErrValidation, "cli", "parse job id", fmt.Sprintf("invalid job id %q", raw), nil)
	}
	return id, nil
}

func newQueueReclaimCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "reclaim",
		Short: "Requeue jobs held by workers that stopped checking in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				threshold := olderThan
				if threshold <= 0 {
					threshold = a.cfg.StaleAfter()
				}
				result, err := a.queue.ReclaimStale(c, time.Now().Add(-threshold))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(result.Jobs) == 0 {
					fmt.Fprintln(out, "No stale jobs")
					return nil
				}
				fmt.Fprintf(out, "Requeued %d job(s) from %d stale worker(s)\n", len(result.Jobs), len(result.Workers))
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Silence threshold (default workers.stale_after)")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database schema and integrity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				health, err := a.db.CheckHealth(c)
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderStatusLine("Database", checkKind(health.Exists && health.Readable), health.Path, colorize))
				fmt.Fprintln(out, renderStatusLine("Schema version", checkKind(health.SchemaVersion > 0), strconv.Itoa(health.SchemaVersion), colorize))
				detail, tablesOK := schemaDetail(health)
				fmt.Fprintln(out, renderStatusLine("Tables", checkKind(tablesOK), detail, colorize))
				fmt.Fprintln(out, renderStatusLine("Integrity", checkKind(health.IntegrityOK), yesNo(health.IntegrityOK), colorize))
				if err != nil {
					return err
				}
				if !health.Healthy() {
					return services.Wrap(services.ErrStorage, "cli", "queue health", "database is unhealthy", nil)
				}
				return nil
			})
		},
	}
}

// schemaDetail describes missing tables and columns for the health report.
func schemaDetail(health store.Health) (string, bool) {
	if len(health.MissingTables) == 0 && len(health.MissingColumns) == 0 {
		return "all present", true
	}
	var parts []string
	if len(health.MissingTables) > 0 {
		parts = append(parts, "tables "+strings.Join(health.MissingTables, ", "))
	}
	if len(health.MissingColumns) > 0 {
		var columns []string
		for table, cols := range health.MissingColumns {
			for _, col := range cols {
				columns = append(columns, table+"."+col)
			}
		}
		sort.Strings(columns)
		parts = append(parts, "columns "+strings.Join(columns, ", "))
	}
	return "missing " + strings.Join(parts, "; "), false
}
