package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/nick-dorsch/todolist/internal/client"
	"github.com/nick-dorsch/todolist/internal/controller"
	"github.com/nick-dorsch/todolist/internal/db"
	"github.com/nick-dorsch/todolist/internal/logging"
	"github.com/nick-dorsch/todolist/internal/server"
	"github.com/nick-dorsch/todolist/internal/ui"
	"github.com/nick-dorsch/todolist/pkg/models"
)

// isolate keeps user and project config files out of the test.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Chdir(dir)
	for _, key := range []string{"TODOLIST_API_URL", "TODOLIST_USERNAME", "TODOLIST_PASSWORD", "TODOLIST_TIMEOUT", "TODOLIST_LOG_LEVEL", "TODOLIST_LOG_FILE", "TODOLIST_SERVER_ADDR", "TODOLIST_DB_PATH"} {
		t.Setenv(key, "")
	}
}

func startAPI(t *testing.T) string {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "todolist.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.Init(context.Background()); err != nil {
		t.Fatalf("failed to init db: %v", err)
	}

	srv := server.NewServer(database, server.Options{
		AllowAnonymous: true,
		BcryptCost:     bcrypt.MinCost,
		Logger:         logging.Discard(),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("todolist %s failed: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestClientCommandsAgainstServer(t *testing.T) {
	isolate(t)
	api := []string{"-api-url", startAPI(t), "-log-level", "error"}
	cmd := func(args ...string) []string { return append(append([]string(nil), api...), args...) }

	if out := mustRun(t, cmd("list")...); !strings.Contains(out, "No tasks.") {
		t.Errorf("expected empty list, got %q", out)
	}

	if out := mustRun(t, cmd("add", "Buy milk", "2%")...); !strings.Contains(out, "Created task 1") {
		t.Errorf("unexpected add output %q", out)
	}
	mustRun(t, cmd("add", "Call mum")...)
	mustRun(t, cmd("priority", "2", "HIGH")...)

	out := mustRun(t, cmd("list")...)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", out)
	}
	if !strings.HasPrefix(lines[1], "1.") || !strings.Contains(lines[1], "Call mum") || !strings.Contains(lines[1], "High") {
		t.Errorf("expected high priority task first, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "Buy milk") || !strings.Contains(lines[2], "2%") {
		t.Errorf("unexpected second row %q", lines[2])
	}

	mustRun(t, cmd("complete", "1")...)
	out = mustRun(t, cmd("list")...)
	if !strings.Contains(out, "✓") {
		t.Errorf("expected completed marker, got %q", out)
	}
	mustRun(t, cmd("reopen", "1")...)

	mustRun(t, cmd("add", "Walk dog")...)
	mustRun(t, cmd("move", "3", "2.")...)
	out = mustRun(t, cmd("list")...)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	if !strings.Contains(lines[2], "Walk dog") || !strings.Contains(lines[3], "Buy milk") {
		t.Errorf("expected Walk dog before Buy milk, got %q", out)
	}

	mustRun(t, cmd("describe", "3", "around", "the", "park")...)
	mustRun(t, cmd("delete", "1")...)
	out = mustRun(t, cmd("list")...)
	if strings.Contains(out, "Buy milk") || !strings.Contains(out, "around the park") {
		t.Errorf("unexpected list after delete %q", out)
	}
}

func TestClientCommandErrors(t *testing.T) {
	isolate(t)
	api := []string{"-api-url", startAPI(t), "-log-level", "error"}
	mustRun(t, append(api, "add", "Only task")...)

	tests := map[string][]string{
		"bad priority":    {"priority", "1", "urgent"},
		"bad id":          {"delete", "abc"},
		"unknown id":      {"complete", "99"},
		"missing title":   {"add"},
		"bad position":    {"move", "1", "zero"},
		"unknown command": {"frobnicate"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := run(t, append(append([]string(nil), api...), args...)...); err == nil {
				t.Errorf("expected error for %v", args)
			}
		})
	}
}

func TestRegisterScopesTasks(t *testing.T) {
	isolate(t)
	url := startAPI(t)
	mustRun(t, "-api-url", url, "add", "Anonymous task")

	alice := []string{"-api-url", url, "-username", "alice", "-password", "pw"}
	if out := mustRun(t, append(alice, "register")...); !strings.Contains(out, "Registered alice") {
		t.Errorf("unexpected register output %q", out)
	}
	if out := mustRun(t, append(alice, "list")...); !strings.Contains(out, "No tasks.") {
		t.Errorf("expected alice to see only her tasks, got %q", out)
	}

	if _, err := run(t, "-api-url", url, "-username", "alice", "-password", "wrong", "list"); err == nil {
		t.Error("expected login failure with wrong password")
	}
}

func TestRegisterNeedsCredentials(t *testing.T) {
	isolate(t)
	if _, err := run(t, "register"); err == nil {
		t.Error("expected error without credentials")
	}
}

func TestTUICommandRunsBoard(t *testing.T) {
	isolate(t)
	original := runBoard
	t.Cleanup(func() { runBoard = original })

	called := false
	runBoard = func(ctx context.Context, ctl *controller.Controller) error {
		called = true
		if ctl == nil {
			t.Error("expected a controller")
		}
		return nil
	}

	if _, err := run(t, "-api-url", "http://localhost:1", "tui"); err != nil {
		t.Fatalf("tui failed: %v", err)
	}
	if !called {
		t.Fatal("expected tui to run the board")
	}
}

func TestNoCommandShowsMenu(t *testing.T) {
	isolate(t)
	original := runMenu
	t.Cleanup(func() { runMenu = original })

	runMenu = func() (string, error) { return "", nil }
	if _, err := run(t); err != nil {
		t.Fatalf("cancelled menu should exit cleanly, got %v", err)
	}

	runMenu = func() (string, error) { return "init", nil }
	out, err := run(t)
	if err != nil {
		t.Fatalf("menu init failed: %v", err)
	}
	if !strings.Contains(out, "todolist.toml") {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat("todolist.toml"); err != nil {
		t.Errorf("expected config file to be written: %v", err)
	}
}

func TestInitRefusesToOverwrite(t *testing.T) {
	isolate(t)
	mustRun(t, "init", "custom.toml")
	if _, err := run(t, "init", "custom.toml"); err == nil {
		t.Error("expected error when the config exists")
	}
}

func TestHelpListsCommandsAndFlags(t *testing.T) {
	isolate(t)
	var stdout, stderr bytes.Buffer
	err := execute(context.Background(), []string{"-help"}, &stdout, &stderr)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected help error, got: %v", err)
	}
	output := stderr.String()
	for _, want := range []string{"Commands:", "serve", "-api-url", "-username", "-log-level"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in help output, got: %s", want, output)
		}
	}
	for _, item := range ui.MenuItems {
		if !strings.Contains(output, item.Description) {
			t.Errorf("menu entry %s is described differently in help: %q", item.Command, item.Description)
		}
	}
}

func TestPriorityChangesMatchReloadedOrder(t *testing.T) {
	url := startAPI(t)
	ctx := context.Background()
	newCtl := func() *controller.Controller {
		return controller.New(client.New(url, client.WithLogger(logging.Discard())), controller.WithLogger(logging.Discard()))
	}
	ids := func(tasks []models.Task) []int64 {
		out := make([]int64, len(tasks))
		for i, t := range tasks {
			out[i] = t.ID
		}
		return out
	}

	ctl := newCtl()
	for _, title := range []string{"A", "B", "C"} {
		if r := ctl.Create(ctx, title, ""); !r.OK() {
			t.Fatalf("Create failed: %v", r.Err)
		}
	}
	check := func(step string) {
		t.Helper()
		reloaded := newCtl()
		if r := reloaded.Load(ctx); !r.OK() {
			t.Fatalf("Load failed: %v", r.Err)
		}
		if live, fresh := ids(ctl.Tasks()), ids(reloaded.Tasks()); !slices.Equal(live, fresh) {
			t.Errorf("%s: live order %v differs from reloaded order %v", step, live, fresh)
		}
	}

	for _, id := range []int64{2, 3, 1} {
		if r := ctl.SetPriority(ctx, id, models.PriorityHigh); !r.OK() {
			t.Fatalf("SetPriority failed: %v", r.Err)
		}
		check(fmt.Sprintf("after task %d set high", id))
	}

	if r := ctl.Move(ctx, 3, 0); !r.OK() {
		t.Fatalf("Move failed: %v", r.Err)
	}
	if r := ctl.SetPriority(ctx, 1, models.PriorityLow); !r.OK() {
		t.Fatalf("SetPriority failed: %v", r.Err)
	}
	check("after a drop and a demotion")
}
