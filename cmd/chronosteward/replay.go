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

	"github.com/chronosteward/chronosteward/chrono/amortized"
	"github.com/chronosteward/chronosteward/chrono/registry"
	"github.com/chronosteward/chronosteward/examples/handshakes"
)

func newReplayCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Resume an example simulation from a previously serialized snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadScenarioConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.Example != "handshakes" {
				return fmt.Errorf("unknown example %q (only \"handshakes\" is built in)", cfg.Example)
			}
			if cfg.SnapshotIn == "" {
				return fmt.Errorf("replay requires snapshot_in in the scenario config")
			}
			return replayHandshakes(cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a scenario YAML file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func replayHandshakes(cfg scenarioConfig) error {
	log := newLogger()

	tables, err := handshakes.BuildTables()
	if err != nil {
		return fmt.Errorf("build dispatch tables: %w", err)
	}
	data, err := os.ReadFile(cfg.SnapshotIn)
	if err != nil {
		return fmt.Errorf("read snapshot %q: %w", cfg.SnapshotIn, err)
	}
	snap, constants, err := registry.Deserialize[handshakes.Time, handshakes.Constants](tables, handshakes.TimeCodec(), handshakes.ConstantsCodec(), data)
	if err != nil {
		return fmt.Errorf("deserialize snapshot %q: %w", cfg.SnapshotIn, err)
	}

	st := amortized.FromSnapshot[handshakes.Time, handshakes.Constants](
		tables, handshakes.Basics{}, constants, handshakes.EncodeTime, snap, log,
	)
	return stepThrough(cfg, st.SnapshotBefore, nil)
}
