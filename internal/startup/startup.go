// Package startup sequences the server's optional collaborators (redis,
// kafka) before the HTTP listener opens, adapted from
// stem/pkg/startup/startup.go's dependency graph and Fibonacci backoff.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is a named startup unit with an optional list of dependency
// names that must start first. Unlike the teacher's StartupDependency
// interface, callers build one of these per collaborator inline rather
// than implementing a type per dependency — main.go has exactly two.
type Dependency struct {
	Name      string
	DependsOn []string
	StartFn   func(ctx context.Context) error
	StopFn    func(ctx context.Context) error
}

type status int

const (
	statusPending status = iota
	statusStarted
	statusStopped
	statusFailed
)

type Startup struct {
	dependencies map[string]Dependency
	order        []string
	logger       ectologger.Logger
	statuses     map[string]status
	maxAttempts  int
}

func New(logger ectologger.Logger, maxAttempts int) *Startup {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Startup{
		logger:       logger,
		dependencies: make(map[string]Dependency),
		statuses:     make(map[string]status),
		maxAttempts:  maxAttempts,
	}
}

func (s *Startup) AddDependency(dep Dependency) {
	s.dependencies[dep.Name] = dep
	s.order = append(s.order, dep.Name)
}

// Start starts every dependency, retrying the whole set on a Fibonacci
// backoff up to maxAttempts times.
func (s *Startup) Start(ctx context.Context) error {
	attempt := 0
	var lastErr error

	a, b := 1, 1
	for attempt < s.maxAttempts {
		attempt++
		s.logger.WithField("attempt", attempt).Infof("beginning startup attempt %d", attempt)

		success := true
		for _, name := range s.order {
			if err := s.startDependency(ctx, name); err != nil {
				s.logger.WithError(err).Errorf("startup dependency %q attempt %d failed", name, attempt)
				lastErr = err
				success = false
				break
			}
		}

		if success {
			return nil
		}
		if attempt >= s.maxAttempts {
			return fmt.Errorf("startup failed after %d attempts: %w", attempt, lastErr)
		}

		s.logger.Infof("retrying startup in %d seconds (attempt %d/%d)", a, attempt, s.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(a) * time.Second):
		}
		a, b = b, a+b
	}
	return nil
}

func (s *Startup) startDependency(ctx context.Context, name string) error {
	if s.statuses[name] == statusStarted {
		return nil
	}
	dep := s.dependencies[name]
	for _, depName := range dep.DependsOn {
		if s.statuses[depName] != statusStarted {
			if err := s.startDependency(ctx, depName); err != nil {
				return err
			}
		}
	}

	s.logger.WithField("dependency", name).Infof("starting dependency %q", name)
	s.statuses[name] = statusPending
	if err := dep.StartFn(ctx); err != nil {
		s.statuses[name] = statusFailed
		return err
	}
	s.statuses[name] = statusStarted
	return nil
}

// Stop stops every dependency in reverse start order.
func (s *Startup) Stop(ctx context.Context) error {
	for i := len(s.order) - 1; i >= 0; i-- {
		name := s.order[i]
		dep := s.dependencies[name]
		if dep.StopFn == nil {
			continue
		}
		s.logger.WithField("dependency", name).Infof("stopping dependency %q", name)
		if err := dep.StopFn(ctx); err != nil {
			s.logger.WithError(err).Errorf("failed to stop dependency %q", name)
			return err
		}
		s.statuses[name] = statusStopped
	}
	return nil
}
