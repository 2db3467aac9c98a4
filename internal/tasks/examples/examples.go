// Package examples contributes the demonstration task group served by the
// default binary.
package examples

import (
	"context"
	"errors"
	"time"

	"github.com/phrazzld/scry-tasks/internal/task"
)

// Task1Result is the value returned by task1.
const Task1Result = "<Task1 Result>"

// ErrDemoFailure is returned by failing_task.
var ErrDemoFailure = errors.New("failing_task failed on purpose")

// PersonArgs are the arguments of task2_with_args.
type PersonArgs struct {
	Name string `json:"name" validate:"required"`
	Age  *int   `json:"age" validate:"required,gte=0"`
}

// CountdownArgs are the arguments of countdown.
type CountdownArgs struct {
	Seconds int `json:"seconds" validate:"gte=1,lte=3600"`
}

// Group holds the demo tasks.
type Group struct {
	// Step is the pause between progress updates
	Step time.Duration

	// Tick is one countdown second
	Tick time.Duration
}

var _ task.Group = Group{}

// NewGroup returns the demo group with its default pacing.
func NewGroup() Group {
	return Group{Step: 200 * time.Millisecond, Tick: time.Second}
}

// Tasks implements task.Group.
func (g Group) Tasks() []task.Definition {
	return []task.Definition{
		{
			Name:    "task1",
			Doc:     "Progress Demo\n\nCounts to one hundred in steps of ten.",
			Handler: g.task1,
		},
		{
			Name:    "task2_with_args",
			Doc:     "Echo Arguments\n\nEchoes its arguments back. Takes a required name and age.",
			Schema:  task.NewStructSchema[PersonArgs](),
			Handler: task.Typed(g.task2WithArgs),
		},
		{
			Name:    "failing_task",
			Handler: g.failingTask,
		},
		{
			Name:    "countdown",
			Doc:     "Countdown\n\nCounts down the given number of seconds.",
			Schema:  task.NewStructSchema[CountdownArgs](),
			Handler: task.Typed(g.countdown),
		},
	}
}

// pause waits one step, returning early if ctx ends.
func (g Group) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (g Group) task1(ctx context.Context, tc *task.TaskContext, _ any) (any, error) {
	for p := 10; p <= 100; p += 10 {
		if err := g.pause(ctx, g.Step); err != nil {
			return nil, err
		}
		if err := tc.SetProgress(ctx, p); err != nil {
			return nil, err
		}
	}
	return Task1Result, nil
}

func (g Group) task2WithArgs(ctx context.Context, tc *task.TaskContext, args PersonArgs) (any, error) {
	if err := g.pause(ctx, g.Step); err != nil {
		return nil, err
	}
	greeting := map[string]string{"greeting": "Hello, " + args.Name}
	if err := tc.Update(ctx, task.WithProgress(50), task.WithResult(greeting)); err != nil {
		return nil, err
	}
	return args, nil
}

func (g Group) failingTask(ctx context.Context, tc *task.TaskContext, _ any) (any, error) {
	if err := tc.SetProgress(ctx, 30); err != nil {
		return nil, err
	}
	if err := g.pause(ctx, g.Step); err != nil {
		return nil, err
	}
	return nil, ErrDemoFailure
}

func (g Group) countdown(ctx context.Context, tc *task.TaskContext, args CountdownArgs) (any, error) {
	for left := args.Seconds; left > 0; left-- {
		progress := (args.Seconds - left) * 100 / args.Seconds
		if err := tc.Update(ctx, task.WithProgress(progress), task.WithResult(map[string]int{"remaining": left})); err != nil {
			return nil, err
		}
		if err := g.pause(ctx, g.Tick); err != nil {
			return nil, err
		}
	}
	return map[string]int{"remaining": 0}, nil
}
