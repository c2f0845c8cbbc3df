// Copyright 2020 YourBase Inc.
// SPDX-License-Identifier: BSD-3-Clause

// inikv reads and updates single values in INI files.
//
// Usage:
//
//	inikv get FILE SECTION KEY
//	inikv set FILE SECTION KEY VALUE
//	inikv watch FILE SECTION KEY
//
// inikv exits with status 2 if the section or key does not exist and 1 on any
// other error.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourbase/iniedit/envvar"
	"github.com/yourbase/iniedit/flock"
	"github.com/yourbase/iniedit/ini"
	"github.com/yourbase/iniedit/iniwatch"
	"github.com/yourbase/iniedit/retry"
	"zombiezen.com/go/log"
)

const (
	exitFailure  = 1
	exitNotFound = 2
)

type globalConfig struct {
	lock        bool
	lockTimeout time.Duration
	debug       bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	logger := &log.LevelFilter{
		Min:    log.Info,
		Output: log.New(os.Stderr, "inikv: ", 0, nil),
	}
	log.SetDefault(logger)
	err := newRootCommand(logger).ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "inikv:", err)
		os.Exit(exitCode(err))
	}
}

// newRootCommand returns the inikv command. If logger is not nil, its
// minimum level is set from the --debug flag before any subcommand runs.
func newRootCommand(logger *log.LevelFilter) *cobra.Command {
	g := new(globalConfig)
	root := &cobra.Command{
		Use:           "inikv",
		Short:         "Read and update values in INI files",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Min = logLevel(g.debug)
			}
		},
	}
	root.PersistentFlags().BoolVar(&g.lock, "lock", envvar.Bool("INIKV_LOCK"), "hold an advisory lock on FILE.lock during the operation (env INIKV_LOCK)")
	root.PersistentFlags().DurationVar(&g.lockTimeout, "lock-timeout", envvar.Duration("INIKV_LOCK_TIMEOUT", 10*time.Second), "how long to wait for the lock (env INIKV_LOCK_TIMEOUT)")
	root.PersistentFlags().BoolVar(&g.debug, "debug", envvar.Bool("INIKV_DEBUG"), "show debug logs (env INIKV_DEBUG)")

	root.AddCommand(
		newGetCommand(g, "get", "Print a value", ini.GetString),
		newGetCommand(g, "get-int", "Print a value as a decimal integer", func(path, section, key string) (string, error) {
			n, err := ini.GetInt(path, section, key)
			return fmt.Sprint(n), err
		}),
		newGetCommand(g, "get-bool", "Print a value as a boolean", func(path, section, key string) (string, error) {
			b, err := ini.GetBool(path, section, key)
			return fmt.Sprint(b), err
		}),
		newSetCommand(g, "set", "Replace a value", ini.SetString),
		newSetCommand(g, "set-int", "Replace a value with a decimal integer", func(path, section, key, arg string) error {
			n, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("set-int: %w", err)
			}
			return ini.SetInt(path, section, key, n)
		}),
		newSetCommand(g, "set-bool", "Replace a value with a boolean", func(path, section, key, arg string) error {
			b, err := strconv.ParseBool(arg)
			if err != nil {
				return fmt.Errorf("set-bool: %w", err)
			}
			return ini.SetBool(path, section, key, b)
		}),
		newWatchCommand(g),
	)
	return root
}

func newGetCommand(g *globalConfig, name, short string, get func(path, section, key string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name + " FILE SECTION KEY",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, section, key := args[0], args[1], args[2]
			var value string
			err := g.withLock(cmd.Context(), path, flock.Shared, func() error {
				var err error
				value, err = get(path, section, key)
				return err
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}
}

// newSetCommand returns a command that writes a value. set receives the
// VALUE argument as given on the command line.
func newSetCommand(g *globalConfig, name, short string, set func(path, section, key, arg string) error) *cobra.Command {
	return &cobra.Command{
		Use:   name + " FILE SECTION KEY VALUE",
		Short: short,
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, section, key, arg := args[0], args[1], args[2], args[3]
			err := g.withLock(cmd.Context(), path, flock.Exclusive, func() error {
				return set(path, section, key, arg)
			})
			if err != nil {
				return err
			}
			log.Debugf(cmd.Context(), "Set [%s] %s from %q in %s", section, key, arg, path)
			return nil
		},
	}
}

func newWatchCommand(g *globalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "watch FILE SECTION KEY",
		Short: "Print a value every time it changes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path, section, key := args[0], args[1], args[2]
			out := cmd.OutOrStdout()
			return iniwatch.Watch(ctx, path, section, key, func(c iniwatch.Change) {
				switch {
				case c.Err != nil:
					log.Warnf(ctx, "%v", c.Err)
				case !c.Found:
					log.Infof(ctx, "[%s] %s not found in %s", section, key, path)
				default:
					fmt.Fprintln(out, c.Value)
				}
			})
		},
	}
}

// withLock calls f, holding the advisory lock on path if --lock was given.
func (g *globalConfig) withLock(ctx context.Context, path string, mode flock.Mode, f func() error) error {
	if !g.lock {
		return f()
	}
	ctx, cancel := context.WithTimeout(ctx, g.lockTimeout)
	defer cancel()
	backoff := &retry.ExponentialBackoff{
		Initial: 10 * time.Millisecond,
		Max:     500 * time.Millisecond,
	}
	return flock.Do(ctx, path, mode, backoff, f)
}

func logLevel(debug bool) log.Level {
	if debug {
		return log.Debug
	}
	return log.Info
}

func exitCode(err error) int {
	if errors.Is(err, ini.ErrNotFound) {
		return exitNotFound
	}
	return exitFailure
}
