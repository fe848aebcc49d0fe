/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"storycanvas/internal/config"
	applog "storycanvas/internal/log"
	"storycanvas/internal/telemetry"
	"storycanvas/internal/ui"
	"storycanvas/internal/version"
)

func usage() {
	fmt.Println("StoryCanvas")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  storycanvas version|-v|--version         Show version")
	fmt.Println("  storycanvas ui [image...]                 Launch desktop UI (build with -tags fyne for full UI)")
	fmt.Println("  storycanvas compose [flags] [image...]    Compose a canvas headless and save it")
	fmt.Println()
	fmt.Println("Run 'storycanvas compose -h' for compose flags.")
}

func main() {
	cfg, cerr := config.Load()
	applog.Init(applog.FromConfig(cfg.Logging))
	l := applog.WithComponent("cli")
	if cerr != nil {
		l.Warn("config ignored", slog.Any("err", cerr))
	}
	telemetry.NewDefault(telemetry.FromEnv(cfg.General.TelemetryOptIn))
	defer telemetry.Flush(context.Background())

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("StoryCanvas")
			fmt.Println(version.String())
			return
		case "ui":
			if err := ui.Run(args[2:]); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		case "compose":
			if err := compose(context.Background(), cfg, args[2:], os.Stdout); err != nil {
				l.Error("compose failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}
