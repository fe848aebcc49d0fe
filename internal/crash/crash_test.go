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
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeScene struct {
	data []byte
	err  error
}

func (f fakeScene) Snapshot() ([]byte, error) { return f.data, f.err }

func useTempReports(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := reportDir
	reportDir = func() string { return dir }
	t.Cleanup(func() { reportDir = old })
	return dir
}

func TestWriteReportCreatesFile(t *testing.T) {
	useTempReports(t)
	path, err := writeReport("boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "StoryCanvas Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") || !strings.Contains(s, "stacktrace") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestDumpSceneErrors(t *testing.T) {
	useTempReports(t)
	if _, err := dumpScene(fakeScene{err: errors.New("locked")}); err == nil {
		t.Fatalf("expected snapshot error to surface")
	}
}

// TestRecover_PanickingGoroutine ensures Recover handles a panic, writes a report and the
// scene dump, and does not terminate the test process due to injected exitFn.
func TestRecover_PanickingGoroutine(t *testing.T) {
	dir := useTempReports(t)

	// Capture stderr temporarily to avoid noisy test logs
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r) // drain pipe
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	func() {
		defer Recover(fakeScene{data: []byte(`{"elements":[]}`)})
		panic("boom")
	}()

	var report, dump string
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		switch {
		case strings.HasPrefix(f.Name(), "storycanvas-crash-"):
			report = filepath.Join(dir, f.Name())
		case strings.HasPrefix(f.Name(), "storycanvas-scene-"):
			dump = filepath.Join(dir, f.Name())
		}
	}
	if report == "" || dump == "" {
		t.Fatalf("expected report and scene dump, got %v", files)
	}
	b, _ := os.ReadFile(report)
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", string(b))
	}
	if d, _ := os.ReadFile(dump); string(d) != `{"elements":[]}` {
		t.Fatalf("unexpected scene dump %q", d)
	}
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}

func TestGuardRecoversPanicInGoroutine(t *testing.T) {
	dir := useTempReports(t)
	oldStderr := os.Stderr
	devnull, _ := os.Open(os.DevNull)
	os.Stderr = devnull
	defer func() {
		os.Stderr = oldStderr
		_ = devnull.Close()
	}()

	codes := make(chan int, 1)
	oldExit := exitFn
	exitFn = func(code int) { codes <- code }
	defer func() { exitFn = oldExit }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		Guard(fakeScene{data: []byte(`{}`)}, func() { panic("export worker") })
	}()
	<-done

	select {
	case code := <-codes:
		if code != 2 {
			t.Fatalf("exit code = %d, want 2", code)
		}
	default:
		t.Fatalf("Guard did not recover the panic")
	}
	files, _ := os.ReadDir(dir)
	if len(files) != 2 {
		t.Fatalf("expected report and scene dump, got %d files", len(files))
	}
}

func TestGuardWithoutPanicDoesNotExit(t *testing.T) {
	oldExit := exitFn
	exitFn = func(code int) { t.Fatalf("unexpected exit %d", code) }
	defer func() { exitFn = oldExit }()
	ran := false
	Guard(nil, func() { ran = true })
	if !ran {
		t.Fatalf("fn not called")
	}
}
