package app

import (
	"context"
	"time"

	"github.com/bft-labs/foundation/internal/domain"
	"github.com/bft-labs/foundation/internal/metrics"
	"github.com/bft-labs/foundation/pkg/fsm"
	"github.com/bft-labs/foundation/pkg/gate"
	"github.com/bft-labs/foundation/pkg/log"
)

// EventEmitter is called when the lifecycle status changes.
type EventEmitter interface {
	OnStateChange(previous, current domain.Status, event domain.Event)
}

// Lifecycle drives the status machine and the completion gate.
//
// Complete and Fail set the gate; Reset clears it. The transition table is
// fixed at construction.
type Lifecycle struct {
	machine *fsm.Machine[domain.Status, domain.Event]
	done    *gate.Gate
	logger  log.Logger
	emitter EventEmitter
}

// NewLifecycle creates a lifecycle in StatusUninitialized.
func NewLifecycle(logger log.Logger, emitter EventEmitter) *Lifecycle {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	l := &Lifecycle{
		machine: fsm.New[domain.Status, domain.Event](domain.StatusUninitialized),
		done:    gate.New(),
		logger:  logger,
		emitter: emitter,
	}

	m := l.machine
	m.AddTransition(domain.StatusUninitialized, domain.EventStart, domain.StatusInitializing, nil)
	m.AddTransition(domain.StatusInitializing, domain.EventComplete, domain.StatusInitialized, l.done.Set)
	m.AddTransition(domain.StatusInitializing, domain.EventFail, domain.StatusFailed, l.done.Set)
	for _, from := range []domain.Status{domain.StatusInitialized, domain.StatusFailed, domain.StatusInitializing} {
		m.AddTransition(from, domain.EventReset, domain.StatusUninitialized, l.done.Clear)
	}
	m.OnTransition(l.observe)

	return l
}

// State returns the current lifecycle status.
func (l *Lifecycle) State() domain.Status {
	return l.machine.Current()
}

// Can reports whether event is legal in the current status.
func (l *Lifecycle) Can(event domain.Event) bool {
	return l.machine.Can(event)
}

// Fire applies event. An illegal event leaves the status unchanged and
// returns an *domain.InitError with CodeInvalidTransition.
func (l *Lifecycle) Fire(event domain.Event) error {
	if _, err := l.machine.Fire(event); err != nil {
		return &domain.InitError{
			Code:  domain.CodeInvalidTransition,
			Phase: domain.PhaseTransition,
			Err:   err,
		}
	}
	return nil
}

// Wait blocks until the current epoch completes or fails, or timeout elapses.
func (l *Lifecycle) Wait(timeout time.Duration) bool {
	return l.done.Wait(timeout)
}

// WaitContext blocks until the current epoch completes or fails, or ctx is done.
func (l *Lifecycle) WaitContext(ctx context.Context) error {
	return l.done.WaitContext(ctx)
}

func (l *Lifecycle) observe(from, to domain.Status, event domain.Event) {
	metrics.IncTransition(from.String(), to.String())

	if l.emitter != nil {
		l.emitter.OnStateChange(from, to, event)
	}

	l.logger.Debug("state transition",
		log.String("from", from.String()),
		log.String("to", to.String()),
		log.String("event", event.String()),
	)
}
