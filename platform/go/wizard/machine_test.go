package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type step string

const (
	stepContext  step = "context"
	stepPlan     step = "plan"
	stepGenerate step = "generate"
)

func TestMachineLinearTransitions(t *testing.T) {
	t.Parallel()

	m := NewMachine(stepContext, stepPlan, stepGenerate)
	require.Equal(t, stepContext, m.Current())

	_, err := m.Back()
	require.ErrorIs(t, err, ErrFirstStep)

	invalid := errors.New("business name is required")
	cur, err := m.Next(func() error { return invalid })
	require.ErrorIs(t, err, invalid)
	require.Equal(t, stepContext, cur)

	cur, err = m.Next(nil)
	require.NoError(t, err)
	require.Equal(t, stepPlan, cur)

	cur, err = m.Back()
	require.NoError(t, err)
	require.Equal(t, stepContext, cur)

	_, _ = m.Next(nil)
	_, _ = m.Next(nil)
	require.True(t, m.IsLast())
	require.Equal(t, 2, m.Index())

	_, err = m.Next(nil)
	require.ErrorIs(t, err, ErrLastStep)

	m.Reset()
	require.Equal(t, stepContext, m.Current())
}

func TestNewMachineRejectsBadSteps(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { NewMachine[step]() })
	require.Panics(t, func() { NewMachine(stepPlan, stepPlan) })
}

func TestRunSequentialStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	var progress []Progress
	var calls []string
	boom := errors.New("generation failed")

	results, err := RunSequential(context.Background(), []string{"a", "b", "c"},
		func(ctx context.Context, s string) (string, error) {
			calls = append(calls, s)
			if s == "b" {
				return "", boom
			}
			return s + "-done", nil
		},
		func(p Progress) { progress = append(progress, p) })

	require.ErrorIs(t, err, boom)
	var itemErr *ItemError
	require.ErrorAs(t, err, &itemErr)
	require.Equal(t, 1, itemErr.Index)
	require.Equal(t, []string{"a-done"}, results)
	require.Equal(t, []string{"a", "b"}, calls, "items after the failure never run")
	require.Equal(t, []Progress{{Current: 1, Total: 3}}, progress)
}

func TestRunSequentialCompletes(t *testing.T) {
	t.Parallel()

	var last Progress
	results, err := RunSequential(context.Background(), []int{1, 2, 3},
		func(ctx context.Context, n int) (int, error) { return n * n, nil },
		func(p Progress) { last = p })

	require.NoError(t, err)
	require.Equal(t, []int{1, 4, 9}, results)
	require.Equal(t, Progress{Current: 3, Total: 3}, last)
}

func TestRunSequentialHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	results, err := RunSequential(ctx, []int{1, 2, 3},
		func(ctx context.Context, n int) (int, error) {
			if n == 1 {
				cancel()
			}
			return n, nil
		}, nil)

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []int{1}, results)
}
