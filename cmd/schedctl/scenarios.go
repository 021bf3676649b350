package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rheehot/HYU-ELE3021/internal/kernel"
)

// The scenario subcommands below each boot a fresh Machine, script one
// syscall path end to end with canned workloads, run the dispatcher loops
// just long enough to settle, and dump the result: the cobra equivalent
// of the teacher's KMain() diagnostic tests (spinlockTest/printfTest/
// kallocTest), one self-contained scenario per concern rather than an
// interactive session.

func newBootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "boot",
		Short: "Boot the machine, spawn init, and dump the table before any dispatch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m := kernel.New(cfg, newLogger())
			boot := m.CPUs()[0]

			init, err := m.Spawn(boot, "init", idleWorkload)
			if err != nil {
				return fmt.Errorf("spawn init: %w", err)
			}
			fmt.Printf("spawned init as pid %d\n", init.Pid)
			fmt.Print(m.Dump(boot))
			return nil
		},
	}
}

func newForkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fork",
		Short: "Fork a child from a running process and dump once both have run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger()
			m := kernel.New(cfg, logger)
			boot := m.CPUs()[0]

			parentBody := func(y *kernel.Yielder) uintptr {
				sc := kernel.NewSyscalls(m, y)
				pid := sc.Fork(childWorkload(3))
				if pid < 0 {
					logger.Error().Msg("fork refused")
					return 1
				}
				logger.Info().Int("child_pid", pid).Msg("forked")
				for i := 0; i < 2; i++ {
					y.Tick(1)
				}
				return 0
			}

			if _, err := m.Spawn(boot, "forker", parentBody); err != nil {
				return fmt.Errorf("spawn forker: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 50*time.Millisecond)
			defer cancel()
			if err := m.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			fmt.Print(m.Dump(boot))
			return nil
		},
	}
}

func newWaitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wait",
		Short: "Fork several children and wait for every one of them to exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger()
			m := kernel.New(cfg, logger)
			boot := m.CPUs()[0]

			const nchild = 3
			parentBody := func(y *kernel.Yielder) uintptr {
				sc := kernel.NewSyscalls(m, y)
				for i := 0; i < nchild; i++ {
					if pid := sc.Fork(childWorkload(uint64(i + 1))); pid < 0 {
						logger.Error().Msg("fork refused")
						return 1
					}
				}
				for i := 0; i < nchild; i++ {
					reaped := sc.Wait()
					logger.Info().Int("reaped_pid", reaped).Msg("waited")
				}
				return 0
			}

			if _, err := m.Spawn(boot, "waiter", parentBody); err != nil {
				return fmt.Errorf("spawn waiter: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 50*time.Millisecond)
			defer cancel()
			if err := m.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			fmt.Print(m.Dump(boot))
			return nil
		},
	}
}

func newKillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill",
		Short: "Kill a process blocked asleep and watch it wake and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger()
			m := kernel.New(cfg, logger)
			boot := m.CPUs()[0]

			const sleepChan = kernel.Chan(0xdead)
			victimBody := func(y *kernel.Yielder) uintptr {
				y.SleepOn(sleepChan)
				logger.Info().Bool("killed", y.Killed()).Msg("victim woke")
				return 0
			}

			victim, err := m.Spawn(boot, "victim", victimBody)
			if err != nil {
				return fmt.Errorf("spawn victim: %w", err)
			}

			// KillProcess promotes every SLEEPING thread of the target
			// straight to RUNNABLE itself, regardless of which channel
			// it was asleep on, so no separate Wakeup call is needed.
			killerBody := func(y *kernel.Yielder) uintptr {
				sc := kernel.NewSyscalls(m, y)
				y.Tick(1)
				if rc := sc.Kill(int(victim.Pid)); rc != 0 {
					logger.Error().Msg("kill failed")
				}
				return 0
			}
			if _, err := m.Spawn(boot, "killer", killerBody); err != nil {
				return fmt.Errorf("spawn killer: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 50*time.Millisecond)
			defer cancel()
			if err := m.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			fmt.Print(m.Dump(boot))
			return nil
		},
	}
}

func newShareCmd() *cobra.Command {
	var percent int

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Admit one process onto the stride scheduler and dump the ticket table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m := kernel.New(cfg, newLogger())
			boot := m.CPUs()[0]

			p, err := m.Spawn(boot, "share-demo", cpuBoundWorkload(1<<30))
			if err != nil {
				return fmt.Errorf("spawn share-demo: %w", err)
			}
			if err := m.SetCPUShare(boot, p, percent); err != nil {
				return fmt.Errorf("set cpu share: %w", err)
			}
			fmt.Print(m.Dump(boot))
			return nil
		},
	}
	cmd.Flags().IntVar(&percent, "percent", 20, "percent of CPU to reserve")
	return cmd
}

func newPsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ps",
		Short: "Spawn init and two CPU-bound workloads and dump without running them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m := kernel.New(cfg, newLogger())
			boot := m.CPUs()[0]

			if _, err := m.Spawn(boot, "init", idleWorkload); err != nil {
				return fmt.Errorf("spawn init: %w", err)
			}
			for i := 0; i < 2; i++ {
				if _, err := m.Spawn(boot, fmt.Sprintf("cpuhog%d", i), cpuBoundWorkload(1<<30)); err != nil {
					return fmt.Errorf("spawn cpuhog%d: %w", i, err)
				}
			}
			fmt.Print(m.Dump(boot))
			return nil
		},
	}
}

// idleWorkload never consumes a tick, just parks forever yielding: the
// canned stand-in for init's real job of waiting on exited orphans.
func idleWorkload(y *kernel.Yielder) uintptr {
	for {
		y.Tick(0)
	}
}

// childWorkload burns n ticks and exits, used as the childBody argument
// every scenario's Fork() call passes.
func childWorkload(n uint64) kernel.ThreadFunc {
	return func(y *kernel.Yielder) uintptr {
		for i := uint64(0); i < n; i++ {
			y.Tick(1)
		}
		return 0
	}
}
