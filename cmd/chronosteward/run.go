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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chronosteward/chronosteward/chrono"
	"github.com/chronosteward/chronosteward/chrono/registry"
	"github.com/chronosteward/chronosteward/examples/handshakes"
)

func newRunCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an example simulation from a fresh steward",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadScenarioConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.Example != "handshakes" {
				return fmt.Errorf("unknown example %q (only \"handshakes\" is built in)", cfg.Example)
			}
			return runHandshakes(cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a scenario YAML file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runHandshakes(cfg scenarioConfig) error {
	log := newLogger()

	if cfg.CrossVerify {
		st, err := handshakes.NewCrossVerified(log)
		if err != nil {
			return fmt.Errorf("build cross-verified steward: %w", err)
		}
		return stepThrough(cfg, st.SnapshotBefore, nil)
	}

	st, err := handshakes.NewAmortized(log)
	if err != nil {
		return fmt.Errorf("build amortized steward: %w", err)
	}
	var writeSnapshot func(snap chrono.Snapshot[handshakes.Time]) error
	if cfg.SnapshotOut != "" {
		writeSnapshot = func(snap chrono.Snapshot[handshakes.Time]) error {
			return persistSnapshot(snap, cfg.SnapshotOut)
		}
	}
	return stepThrough(cfg, st.SnapshotBefore, writeSnapshot)
}

func stepThrough(
	cfg scenarioConfig,
	snapshotBefore func(handshakes.Time) (chrono.Snapshot[handshakes.Time], error),
	writeFinal func(chrono.Snapshot[handshakes.Time]) error,
) error {
	until := handshakes.Time(cfg.Until)
	every := handshakes.Time(cfg.SnapshotEvery)

	var last chrono.Snapshot[handshakes.Time]
	if every > 0 {
		for t := every; t < until; t += every {
			snap, err := snapshotBefore(t)
			if err != nil {
				return fmt.Errorf("snapshot_before(%v): %w", t, err)
			}
			fmt.Fprintf(os.Stdout, "t=%d: %d fields\n", int64(t), snap.NumFields())
		}
	}
	snap, err := snapshotBefore(until)
	if err != nil {
		return fmt.Errorf("snapshot_before(%v): %w", until, err)
	}
	last = snap
	fmt.Fprintf(os.Stdout, "t=%d: %d fields\n", int64(until), last.NumFields())

	if writeFinal != nil {
		if err := writeFinal(last); err != nil {
			return err
		}
	}
	return nil
}

func persistSnapshot(snap chrono.Snapshot[handshakes.Time], path string) error {
	tables, err := handshakes.BuildTables()
	if err != nil {
		return fmt.Errorf("build dispatch tables: %w", err)
	}
	data, err := registry.Serialize[handshakes.Time, handshakes.Constants](tables, handshakes.TimeCodec(), handshakes.ConstantsCodec(), handshakes.Constants{}, snap)
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %q: %w", path, err)
	}
	return nil
}
