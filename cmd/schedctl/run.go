package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rheehot/HYU-ELE3021/internal/kernel"
)

func newRunCmd() *cobra.Command {
	var duration time.Duration
	var shares []int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Boot the scheduler with a small demo workload and dump the result",
		Long: `run boots the process/thread scheduler with a handful of canned
workloads — a few CPU-bound MLFQ processes and, for every --share value
given, one additional process admitted onto the stride scheduler with that
percent of CPU — lets the dispatcher loops run for --duration, then prints
a procdump-style snapshot.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger()
			m := kernel.New(cfg, logger)
			boot := m.CPUs()[0]

			init, err := m.Spawn(boot, "init", cpuBoundWorkload(1<<30))
			if err != nil {
				return fmt.Errorf("spawn init: %w", err)
			}
			logger.Info().Int("pid", int(init.Pid)).Msg("spawned init")

			for i := 0; i < 3; i++ {
				p, err := m.Spawn(boot, fmt.Sprintf("cpuhog%d", i), cpuBoundWorkload(1<<30))
				if err != nil {
					return fmt.Errorf("spawn cpuhog%d: %w", i, err)
				}
				logger.Info().Int("pid", int(p.Pid)).Msg("spawned MLFQ workload")
			}

			for i, pct := range shares {
				p, err := m.Spawn(boot, fmt.Sprintf("stride%d", i), cpuBoundWorkload(1<<30))
				if err != nil {
					return fmt.Errorf("spawn stride%d: %w", i, err)
				}
				if err := m.SetCPUShare(boot, p, pct); err != nil {
					return fmt.Errorf("share stride%d: %w", i, err)
				}
				logger.Info().Int("pid", int(p.Pid)).Int("percent", pct).Msg("spawned stride workload")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), duration)
			defer cancel()

			if err := m.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}

			fmt.Print(m.Dump(boot))
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 200*time.Millisecond, "how long to let the dispatcher loops run")
	cmd.Flags().IntSliceVar(&shares, "share", nil, "percent of CPU to reserve for an extra stride workload (repeatable)")

	return cmd
}

// cpuBoundWorkload is a canned ThreadFunc that just burns n ticks,
// yielding control back to the dispatcher one tick at a time so MLFQ
// demotion/expiry has something to act on, then exits with retval 0.
func cpuBoundWorkload(n uint64) kernel.ThreadFunc {
	return func(y *kernel.Yielder) uintptr {
		for i := uint64(0); i < n; i++ {
			y.Tick(1)
		}
		return 0
	}
}
