// Package runner owns one sequential worker per account identifier. It
// replays the journal before serving an entity's first command, then resolves
// commands strictly in acceptance order: decide, persist the event if any,
// apply it, reply. Different identifiers run fully in parallel.
package runner

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/yanun0323/logs"

	"main/internal/account"
	"main/internal/journal"
	"main/pkg/exception"
)

const defaultQueueSize = 64

// Config controls runner behavior.
type Config struct {
	// QueueSize bounds each entity's pending command queue.
	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	return c
}

// Runner routes commands to per-account entities backed by one journal.
type Runner struct {
	cfg Config
	log journal.Log

	mu       sync.Mutex
	entities map[string]*entity
	done     chan struct{}
	closed   uint32
	wg       sync.WaitGroup
}

type result struct {
	resp account.Response
	err  error
}

type envelope struct {
	cmd   account.Command
	reply chan result
}

type entity struct {
	id    string
	queue chan envelope
}

// New creates a runner on top of the given journal.
func New(log journal.Log, cfg Config) *Runner {
	return &Runner{
		cfg:      cfg.withDefaults(),
		log:      log,
		entities: make(map[string]*entity),
		done:     make(chan struct{}),
	}
}

// Submit delivers one command to the identifier's entity and waits for its
// response. Commands for the same identifier resolve one at a time in the
// order they were accepted.
func (r *Runner) Submit(ctx context.Context, accountID string, cmd account.Command) (account.Response, error) {
	if accountID == "" {
		return nil, exception.ErrRunnerEmptyID
	}
	if cmd == nil {
		return nil, exception.ErrRunnerNilCommand
	}

	e, err := r.entity(accountID)
	if err != nil {
		return nil, err
	}

	env := envelope{cmd: cmd, reply: make(chan result, 1)}
	select {
	case e.queue <- env:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return nil, exception.ErrRunnerClosed
	}

	select {
	case res := <-env.reply:
		return res.resp, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return nil, exception.ErrRunnerClosed
	}
}

// Close stops every entity after draining its queue with errors.
func (r *Runner) Close() {
	if !atomic.CompareAndSwapUint32(&r.closed, 0, 1) {
		return
	}
	close(r.done)
	// Taking mu orders this Wait after any in-flight entity registration's
	// Add; later registrations observe closed and bail.
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wg.Wait()
}

func (r *Runner) entity(accountID string) (*entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if atomic.LoadUint32(&r.closed) != 0 {
		return nil, exception.ErrRunnerClosed
	}
	if e, ok := r.entities[accountID]; ok {
		return e, nil
	}

	e := &entity{
		id:    accountID,
		queue: make(chan envelope, r.cfg.QueueSize),
	}
	r.entities[accountID] = e
	r.wg.Add(1)
	go r.runEntity(e)
	return e, nil
}

func (r *Runner) runEntity(e *entity) {
	defer r.wg.Done()

	machine := account.NewMachine(e.id)
	events, replayErr := r.log.ReadAll(context.Background(), e.id)
	if replayErr != nil {
		logs.Errorf("replay journal for %s, err: %+v", e.id, replayErr)
	} else {
		machine.Restore(events)
	}

	for {
		select {
		case env := <-e.queue:
			env.reply <- r.resolve(machine, env.cmd, replayErr)
		case <-r.done:
			r.drain(e)
			return
		}
	}
}

// resolve performs the decide -> persist -> apply -> reply sequence for one
// command. The event is never applied and the response never released unless
// the append was acknowledged as durable.
func (r *Runner) resolve(machine *account.Machine, cmd account.Command, replayErr error) result {
	if replayErr != nil {
		return result{err: exception.ErrRunnerEntityDead}
	}

	evt, resp := machine.Decide(cmd)
	if evt == nil {
		return result{resp: resp}
	}

	if err := r.log.Append(context.Background(), machine.ID(), evt); err != nil {
		logs.Errorf("append event for %s, err: %+v", machine.ID(), err)
		return result{err: err}
	}
	machine.Apply(evt)
	return result{resp: resp}
}

func (r *Runner) drain(e *entity) {
	for {
		select {
		case env := <-e.queue:
			env.reply <- result{err: exception.ErrRunnerClosed}
		default:
			return
		}
	}
}
