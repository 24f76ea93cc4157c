// Copyright 2026 The Chronosteward Authors
// This file is part of Chronosteward.
//
// Chronosteward is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Chronosteward is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Chronosteward. If not, see <http://www.gnu.org/licenses/>.

// Command chronosteward drives the engine's example simulations from the
// command line: `run` advances a fresh steward through a scenario, `replay`
// resumes one from a previously serialized snapshot. Both subcommands share
// a persistent --verbose flag, in the style of Erigon's own root command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/chronosteward/chronosteward/internal/tslog"
)

var verbose bool

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "chronosteward",
		Short:         "Drive chronosteward example simulations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log scheduling decisions at debug level")
	root.AddCommand(newRunCommand())
	root.AddCommand(newReplayCommand())
	return root
}

func newLogger() *tslog.Logger {
	if verbose {
		return tslog.New(zapcore.DebugLevel)
	}
	return tslog.New(tslog.LevelFromEnv())
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chronosteward:", err)
		os.Exit(1)
	}
}
