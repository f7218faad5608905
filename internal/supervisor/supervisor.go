// Package supervisor hosts long-lived cooperative services, restarting
// them on recoverable failure and guaranteeing each one's Stop hook runs
// exactly once before it leaves the index.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Service is a named long-running unit. Launch should block until ctx is
// cancelled or the unit's work is done (successfully or not); it must
// observe ctx promptly at its next suspension point. Stop releases any
// resources Launch acquired and is always called exactly once, regardless
// of how Launch exited.
type Service interface {
	Name() string
	Launch(ctx context.Context) error
	Stop(ctx context.Context) error
}

// RecoverableError is a promotion a Service's Launch can return to tell
// the supervisor "restart me after RecoveryDelay rather than giving up".
// Any other error propagates out of the supervised unit and the entry is
// dropped without a restart.
type RecoverableError struct {
	Inner         error
	RecoveryDelay time.Duration
}

func (e *RecoverableError) Error() string {
	return fmt.Sprintf("recoverable after %s: %s", e.RecoveryDelay, e.Inner)
}

func (e *RecoverableError) Unwrap() error { return e.Inner }

// MaxRecoveryDelay scans err (and, if it is a combined error produced by
// errors.Join, every leaf) for *RecoverableError values and returns the
// maximum RecoveryDelay found, plus whether any were found at all. If any
// non-recoverable leaf is present, found is false: a non-recoverable leaf
// dominates and the caller should propagate err instead of restarting.
func MaxRecoveryDelay(err error) (delay time.Duration, found bool) {
	if err == nil {
		return 0, false
	}

	var recoverable *RecoverableError
	if errors.As(err, &recoverable) {
		// Walk every leaf of a joined error tree; a single non-recoverable
		// leaf disqualifies the whole group from being treated as
		// recoverable.
		leaves := unwrapJoined(err)
		for _, leaf := range leaves {
			var re *RecoverableError
			if !errors.As(leaf, &re) {
				return 0, false
			}
			if re.RecoveryDelay > delay {
				delay = re.RecoveryDelay
			}
			found = true
		}
		return delay, found
	}
	return 0, false
}

func unwrapJoined(err error) []error {
	type multiUnwrap interface{ Unwrap() []error }
	if m, ok := err.(multiUnwrap); ok {
		var leaves []error
		for _, e := range m.Unwrap() {
			leaves = append(leaves, unwrapJoined(e)...)
		}
		return leaves
	}
	return []error{err}
}

type entry struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor indexes running services by name; a name may be running at
// most once. The zero value is not usable, construct one with New.
type Supervisor struct {
	mu       sync.Mutex
	entries  map[string]*entry
	logger   *slog.Logger
	launchWG sync.WaitGroup
}

// New returns an empty, ready-to-use Supervisor.
func New(logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		entries: make(map[string]*entry),
		logger:  logger.With("component", "supervisor"),
	}
}

// Launch starts service's body as an independently scheduled goroutine. If
// retryOnFail is true, a *RecoverableError (or an errors.Join group whose
// every leaf is recoverable) returned by Launch triggers a sleep for the
// maximum RecoveryDelay over the group, then a restart; any other error
// propagates and the entry is dropped. Stop is awaited exactly once on any
// exit, then the entry is removed.
//
// Launch returns immediately; it does not wait for the service to exit.
func (s *Supervisor) Launch(service Service, retryOnFail bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := service.Name()
	if _, running := s.entries[name]; running {
		return fmt.Errorf("supervisor: service %q already running", name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{cancel: cancel, done: make(chan struct{})}
	s.entries[name] = e

	s.launchWG.Add(1)
	go s.run(ctx, service, e, retryOnFail)

	return nil
}

func (s *Supervisor) run(ctx context.Context, service Service, e *entry, retryOnFail bool) {
	defer s.launchWG.Done()
	defer close(e.done)

	logger := s.logger.With("service", service.Name())

	for {
		err := service.Launch(ctx)

		if err == nil {
			logger.Info("service exited cleanly")
			break
		}

		if ctx.Err() != nil {
			logger.Info("service cancelled", "error", err)
			break
		}

		if retryOnFail {
			if delay, recoverable := MaxRecoveryDelay(err); recoverable {
				logger.Warn("service failed, restarting", "error", err, "delay", delay)
				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
				}
			}
		}

		logger.Error("service failed, not restarting", "error", err)
		break
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := service.Stop(stopCtx); err != nil {
		logger.Error("service stop hook failed", "error", err)
	}
	stopCancel()

	s.mu.Lock()
	delete(s.entries, service.Name())
	s.mu.Unlock()
}

// StopService cancels the single named unit and waits for its Stop hook
// to complete. It is a no-op if name is not running.
func (s *Supervisor) StopService(name string) {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return
	}
	e.cancel()
	<-e.done
}

// IsRunning reports whether name is currently supervised.
func (s *Supervisor) IsRunning(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

// Stop cancels every supervised unit and waits for all of them (and their
// Stop hooks) to finish.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	for _, e := range s.entries {
		e.cancel()
	}
	s.mu.Unlock()

	s.launchWG.Wait()
}
