package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestStartup_Start_StartsDependenciesInDependencyOrder(t *testing.T) {
	var started []string
	s := New(testLogger(), 1)
	s.AddDependency(Dependency{
		Name:      "b",
		DependsOn: []string{"a"},
		StartFn:   func(ctx context.Context) error { started = append(started, "b"); return nil },
	})
	s.AddDependency(Dependency{
		Name:    "a",
		StartFn: func(ctx context.Context) error { started = append(started, "a"); return nil },
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"a", "b"}, started)
}

func TestStartup_Start_EachDependencyStartsOnlyOnce(t *testing.T) {
	calls := map[string]int{}
	s := New(testLogger(), 1)
	s.AddDependency(Dependency{
		Name:    "shared",
		StartFn: func(ctx context.Context) error { calls["shared"]++; return nil },
	})
	s.AddDependency(Dependency{
		Name:      "x",
		DependsOn: []string{"shared"},
		StartFn:   func(ctx context.Context) error { calls["x"]++; return nil },
	})
	s.AddDependency(Dependency{
		Name:      "y",
		DependsOn: []string{"shared"},
		StartFn:   func(ctx context.Context) error { calls["y"]++; return nil },
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, calls["shared"])
}

func TestStartup_Start_RetriesOnFailureThenReturnsErrorAfterMaxAttempts(t *testing.T) {
	attempts := 0
	s := New(testLogger(), 2)
	s.AddDependency(Dependency{
		Name: "flaky",
		StartFn: func(ctx context.Context) error {
			attempts++
			return errors.New("boom")
		},
	})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestStartup_Start_SucceedsOnRetryAfterInitialFailure(t *testing.T) {
	attempts := 0
	s := New(testLogger(), 3)
	s.AddDependency(Dependency{
		Name: "flaky",
		StartFn: func(ctx context.Context) error {
			attempts++
			if attempts < 2 {
				return errors.New("boom")
			}
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 2, attempts)
}

func TestStartup_Stop_StopsInReverseStartOrder(t *testing.T) {
	var stopped []string
	s := New(testLogger(), 1)
	s.AddDependency(Dependency{
		Name:    "a",
		StartFn: func(ctx context.Context) error { return nil },
		StopFn:  func(ctx context.Context) error { stopped = append(stopped, "a"); return nil },
	})
	s.AddDependency(Dependency{
		Name:    "b",
		StartFn: func(ctx context.Context) error { return nil },
		StopFn:  func(ctx context.Context) error { stopped = append(stopped, "b"); return nil },
	})

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"b", "a"}, stopped)
}
