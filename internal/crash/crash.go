/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "storycanvas/internal/log"
	"storycanvas/internal/telemetry"
	"storycanvas/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// reportDir is where crash reports go; tests point it at a temp dir.
var reportDir = os.TempDir

// SceneDumper is implemented by an editor session. The scene is written next to the crash
// report for diagnosis. It is never uploaded.
type SceneDumper interface {
	Snapshot() ([]byte, error)
}

// Recover captures a panic, logs an error with stacktrace, writes an error report file
// and, when scene is non-nil, a JSON dump of the scene.
//
// Usage: defer crash.Recover(session)
func Recover(scene SceneDumper) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(r, stack)
		if scene != nil {
			if path, err := dumpScene(scene); err != nil {
				l.Error("scene dump failed", slog.Any("err", err))
			} else {
				l.Info("scene dump written", slog.String("path", path))
			}
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		// Exit with a non-zero code to indicate failure in CLI context.
		exitFn(2)
	}
}

// Guard runs fn with Recover deferred, for goroutines and event loops that need
// the same crash handling as the caller.
func Guard(scene SceneDumper, fn func()) {
	defer Recover(scene)
	fn()
}

func stamp() string { return time.Now().Format("20060102-150405") }

func writeReport(panicVal any, stack []byte) (string, error) {
	path := filepath.Join(reportDir(), fmt.Sprintf("storycanvas-crash-%s.log", stamp()))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "StoryCanvas Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	// optionally upload anonymized crash report (opt-in via env)
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}

func dumpScene(scene SceneDumper) (string, error) {
	data, err := scene.Snapshot()
	if err != nil {
		return "", fmt.Errorf("snapshot scene: %w", err)
	}
	path := filepath.Join(reportDir(), fmt.Sprintf("storycanvas-scene-%s.json", stamp()))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return path, fmt.Errorf("write scene dump: %w", err)
	}
	return path, nil
}
