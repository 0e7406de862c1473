package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"plexconverter/internal/services"
	"plexconverter/internal/workers"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Register and inspect encoding workers",
	}

	workerCmd.AddCommand(newWorkerRegisterCommand(ctx))
	workerCmd.AddCommand(newWorkerListCommand(ctx))
	workerCmd.AddCommand(newWorkerStatusCommand(ctx))
	workerCmd.AddCommand(newWorkerClearCommand(ctx))

	return workerCmd
}

func newWorkerRegisterCommand(ctx *commandContext) *cobra.Command {
	var (
		hostname string
		ip       string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register this machine and print its worker id",
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := workers.DetectHost()
			if err != nil && strings.TrimSpace(hostname) == "" {
				return fmt.Errorf("detect host: %w", err)
			}
			if hostname != "" {
				info.Hostname = hostname
			}
			if ip != "" {
				info.IPAddress = ip
			}
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				worker, err := a.registry.Register(c, info)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, worker)
				}
				if worker == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Address %s is excluded from registration; nothing recorded\n", info.IPAddress)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), worker.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&hostname, "hostname", "", "Override the detected hostname")
	cmd.Flags().StringVar(&ip, "ip", "", "Override the detected IP address")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newWorkerListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered workers, most recent check-in first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				list, err := a.registry.List(c)
				if err != nil {
					return err
				}
				if asJSON {
					if list == nil {
						list = []*workers.Worker{}
					}
					return writeJSON(cmd, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No workers registered")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, w := range list {
					rows = append(rows, []string{
						w.ID,
						w.Hostname,
						w.IPAddress,
						w.OSType,
						w.CPU,
						formatBytes(int64(w.RAMBytes)),
						statusLabel(string(w.State)),
						formatAgo(w.LastCheckin),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Hostname", "IP", "OS", "CPU", "RAM", "Status", "Last Check-in"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newWorkerStatusCommand(ctx *commandContext) *cobra.Command {
	var set string

	cmd := &cobra.Command{
		Use:   "status <worker-id>",
		Short: "Show or report a worker's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				if set != "" {
					state, ok := workers.ParseState(set)
					if !ok {
						return services.Wrap(services.ErrValidation, "cli", "worker status", fmt.Sprintf("unknown state %q", set), nil)
					}
					if err := a.registry.SetStatus(c, id, state); err != nil {
						if errors.Is(err, workers.ErrWorkerNotFound) {
							return fmt.Errorf("%w (run `pvc worker register` again)", err)
						}
						return err
					}
				}
				state, ok, err := a.registry.Status(c, id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: %s", workers.ErrWorkerNotFound, id)
				}
				fmt.Fprintln(cmd.OutOrStdout(), state)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "Report a new state (Connected or Processing)")
	return cmd
}

func newWorkerClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every worker registration unless one is processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app) error {
				result, err := a.registry.ClearAll(c)
				if err != nil {
					return err
				}
				if result.Blocked > 0 {
					return services.Wrap(services.ErrConflict, "cli", "worker clear",
						fmt.Sprintf("%d worker(s) still processing; nothing removed", result.Blocked), nil)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d worker(s)\n", result.Removed)
				return nil
			})
		},
	}
}
