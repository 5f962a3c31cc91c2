package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/nick-dorsch/todolist/internal/client"
	"github.com/nick-dorsch/todolist/internal/controller"
	"github.com/nick-dorsch/todolist/internal/tasklist"
	"github.com/nick-dorsch/todolist/pkg/models"
)

func newClient(e *env) *client.Client {
	return client.New(e.cfg.APIURL,
		client.WithTimeout(e.cfg.Timeout.Duration),
		client.WithLogger(e.log),
	)
}

// newController logs in when credentials are configured and loads the list.
func newController(ctx context.Context, e *env) (*controller.Controller, error) {
	c := newClient(e)
	if e.cfg.HasCredentials() {
		if err := c.Login(ctx, e.cfg.Username, e.cfg.Password); err != nil {
			return nil, err
		}
	}
	ctl := controller.New(c, controller.WithLogger(e.log))
	if r := ctl.Load(ctx); !r.OK() {
		return nil, r.Err
	}
	return ctl, nil
}

func runTUI(ctx context.Context, e *env) error {
	c := newClient(e)
	if e.cfg.HasCredentials() {
		if err := c.Login(ctx, e.cfg.Username, e.cfg.Password); err != nil {
			return err
		}
	}
	// The board loads on start and reports load failures as alerts.
	return runBoard(ctx, controller.New(c, controller.WithLogger(e.log)))
}

func runList(ctx context.Context, e *env) error {
	ctl, err := newController(ctx, e)
	if err != nil {
		return err
	}

	tasks := ctl.Tasks()
	if len(tasks) == 0 {
		fmt.Fprintln(e.stdout, "No tasks.")
		return nil
	}

	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tPRIORITY\tDONE\tDATE\tTASK\tDESCRIPTION")
	for i, t := range tasks {
		done := ""
		if t.Completed() {
			done = "✓"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			tasklist.Label(i), t.ID, t.Priority.Label(), done, t.TaskDate, t.Task, oneLine(t.Description))
	}
	return w.Flush()
}

func runAdd(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: todolist add <title> [description]")
	}
	ctl, err := newController(ctx, e)
	if err != nil {
		return err
	}
	r := ctl.Create(ctx, args[0], strings.Join(args[1:], " "))
	if !r.OK() {
		return r.Err
	}
	fmt.Fprintf(e.stdout, "✓ Created task %d\n", r.TaskID)
	return nil
}

func runDelete(ctx context.Context, e *env, args []string) error {
	id, err := parseID(args, "delete <id>")
	if err != nil {
		return err
	}
	return withController(ctx, e, func(ctl *controller.Controller) controller.Result {
		return ctl.Delete(ctx, id)
	}, fmt.Sprintf("✓ Deleted task %d", id))
}

func runSetCompleted(ctx context.Context, e *env, args []string, done bool) error {
	verb, usage := "Reopened", "reopen <id>"
	if done {
		verb, usage = "Completed", "complete <id>"
	}
	id, err := parseID(args, usage)
	if err != nil {
		return err
	}
	return withController(ctx, e, func(ctl *controller.Controller) controller.Result {
		return ctl.SetCompleted(ctx, id, done)
	}, fmt.Sprintf("✓ %s task %d", verb, id))
}

func runPriority(ctx context.Context, e *env, args []string) error {
	const usage = "priority <id> <low|medium|high>"
	if len(args) != 2 {
		return fmt.Errorf("usage: todolist %s", usage)
	}
	id, err := parseID(args[:1], usage)
	if err != nil {
		return err
	}
	p := models.Priority(strings.ToLower(args[1]))
	return withController(ctx, e, func(ctl *controller.Controller) controller.Result {
		return ctl.SetPriority(ctx, id, p)
	}, fmt.Sprintf("✓ Task %d is now %s priority", id, p.Label()))
}

func runDescribe(ctx context.Context, e *env, args []string) error {
	const usage = "describe <id> <text>"
	if len(args) < 1 {
		return fmt.Errorf("usage: todolist %s", usage)
	}
	id, err := parseID(args[:1], usage)
	if err != nil {
		return err
	}
	text := strings.Join(args[1:], " ")
	return withController(ctx, e, func(ctl *controller.Controller) controller.Result {
		return ctl.EditDescription(ctx, id, text)
	}, fmt.Sprintf("✓ Updated description of task %d", id))
}

// runMove takes a 1-based row among the other tasks, matching the labels
// printed by list.
func runMove(ctx context.Context, e *env, args []string) error {
	const usage = "move <id> <position>"
	if len(args) != 2 {
		return fmt.Errorf("usage: todolist %s", usage)
	}
	id, err := parseID(args[:1], usage)
	if err != nil {
		return err
	}
	pos, err := strconv.Atoi(strings.TrimSuffix(args[1], "."))
	if err != nil || pos < 1 {
		return fmt.Errorf("invalid position %q", args[1])
	}
	return withController(ctx, e, func(ctl *controller.Controller) controller.Result {
		return ctl.Move(ctx, id, pos-1)
	}, fmt.Sprintf("✓ Moved task %d", id))
}

func runRegister(ctx context.Context, e *env) error {
	if !e.cfg.HasCredentials() {
		return fmt.Errorf("register needs -username and -password")
	}
	if err := newClient(e).Register(ctx, e.cfg.Username, e.cfg.Password); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "✓ Registered %s\n", e.cfg.Username)
	return nil
}

func withController(ctx context.Context, e *env, op func(ctl *controller.Controller) controller.Result, done string) error {
	ctl, err := newController(ctx, e)
	if err != nil {
		return err
	}
	if r := op(ctl); !r.OK() {
		return r.Err
	}
	fmt.Fprintln(e.stdout, done)
	return nil
}

func parseID(args []string, usage string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: todolist %s", usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", args[0])
	}
	return id, nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
