// Package recorder turns attack notifications into stored battle records.
// Attacks travel through a buffered dispatcher queue so storage latency never
// stalls the scheduler.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/battlegrid/engine/internal/battle"
	"github.com/battlegrid/engine/internal/dispatcher"
	"github.com/battlegrid/engine/internal/logging"
	"github.com/battlegrid/engine/internal/storage"
	"github.com/battlegrid/engine/pkg/core"
)

// CommandAttack is the dispatcher command carrying a *core.AttackEvent.
const CommandAttack = "attack"

// DefaultBufferSize is the attack queue capacity.
const DefaultBufferSize = 1000

var (
	// ErrUnexpectedPayload is returned when an attack event carries the wrong type.
	ErrUnexpectedPayload = errors.New("unexpected payload")
	// ErrHandlerRegistered is returned when the dispatcher already routes a
	// recorder command.
	ErrHandlerRegistered = errors.New("handler already registered")
)

// Dependencies holds all dependencies for the recorder
type Dependencies struct {
	Backend    storage.Backend
	Logger     *slog.Logger
	BufferSize int
	// Now stamps attack events. Defaults to time.Now.
	Now func() time.Time
}

// Recorder implements core.BattleLog on top of a storage backend.
type Recorder struct {
	deps       Dependencies
	dispatcher *dispatcher.Dispatcher

	mu       sync.Mutex
	battleID uint
	seq      uint
	started  bool

	recorded atomic.Int64
	failed   atomic.Int64
}

// New creates a recorder and registers its handlers.
func New(deps Dependencies) (*Recorder, error) {
	if deps.Backend == nil {
		return nil, errors.New("recorder: nil storage backend")
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.BufferSize <= 0 {
		deps.BufferSize = DefaultBufferSize
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(deps.Logger))
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	r := &Recorder{deps: deps, dispatcher: d}
	if err := r.RegisterHandlers(d); err != nil {
		return nil, err
	}
	return r, nil
}

// RegisterHandlers registers the recorder's handlers with the dispatcher.
// Replacing a buffered route would orphan its worker, so a dispatcher that
// already routes attacks is rejected.
func (r *Recorder) RegisterHandlers(d *dispatcher.Dispatcher) error {
	if d.HasHandler(CommandAttack) {
		return fmt.Errorf("%w: %s", ErrHandlerRegistered, CommandAttack)
	}
	// attacks are high volume and must not be dropped
	d.Register(CommandAttack, r.handleAttack, dispatcher.Buffered(r.deps.BufferSize), dispatcher.Blocking(), dispatcher.Logged())
	return nil
}

// Start registers the battle with the backend. Attacks reported before Start
// are dropped.
func (r *Recorder) Start(b *core.Battle) error {
	if err := r.deps.Backend.StartBattle(b); err != nil {
		return fmt.Errorf("starting battle: %w", err)
	}

	r.mu.Lock()
	r.battleID = b.ID
	r.seq = 0
	r.started = true
	r.mu.Unlock()

	r.deps.Logger.Info("Recording battle", "battleId", b.ID, "name", b.Name)
	return nil
}

// BattleID returns the ID assigned by the backend.
func (r *Recorder) BattleID() uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.battleID
}

// PrintBattleLog snapshots one attack and queues it for storage.
func (r *Recorder) PrintBattleLog(attacker, target *core.Unit) {
	if attacker == nil || target == nil {
		return
	}

	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		r.deps.Logger.Warn("Attack reported before the battle started", "attacker", attacker.Name)
		return
	}
	r.seq++
	e := &core.AttackEvent{
		BattleID: r.battleID,
		Sequence: r.seq,
		Time:     r.deps.Now(),
		Attacker: core.Snapshot(attacker),
		Target:   core.Snapshot(target),
		Killed:   !target.IsAlive(),
	}
	r.mu.Unlock()

	if _, err := r.dispatcher.Dispatch(dispatcher.Event{Command: CommandAttack, Payload: e, Timestamp: e.Time}); err != nil {
		r.failed.Add(1)
		r.deps.Logger.Error("Failed to queue attack", "sequence", e.Sequence, "error", err)
	}
}

func (r *Recorder) handleAttack(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(*core.AttackEvent)
	if !ok {
		r.failed.Add(1)
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedPayload, e.Payload)
	}
	if err := r.deps.Backend.RecordAttack(ev); err != nil {
		r.failed.Add(1)
		return nil, fmt.Errorf("recording attack %d: %w", ev.Sequence, err)
	}
	r.recorded.Add(1)
	return nil, nil
}

// Finish waits for queued attacks and stores the summary. The recorder
// accepts no further attacks afterwards.
func (r *Recorder) Finish(s *core.BattleSummary) error {
	if n := r.dispatcher.Pending(CommandAttack); n > 0 {
		r.deps.Logger.Debug("Waiting for queued attacks", "pending", n)
	}
	r.dispatcher.Close()

	r.mu.Lock()
	started := r.started
	r.started = false
	s.BattleID = r.battleID
	r.mu.Unlock()

	if !started {
		return storage.ErrNoBattle
	}
	if err := r.deps.Backend.EndBattle(s); err != nil {
		return fmt.Errorf("ending battle: %w", err)
	}

	r.deps.Logger.Info("Battle recorded",
		"battleId", s.BattleID,
		"outcome", s.Outcome,
		"recorded", r.recorded.Load(),
		"failed", r.failed.Load(),
	)
	return nil
}

// Recorded returns how many attacks reached the backend.
func (r *Recorder) Recorded() int64 {
	return r.recorded.Load()
}

// Failed returns how many attacks could not be queued or stored.
func (r *Recorder) Failed() int64 {
	return r.failed.Load()
}

// Summarize builds the summary of a finished battle from the scheduler's
// result and the surviving rosters.
func Summarize(res battle.Result, player, computer *core.Army, end time.Time) core.BattleSummary {
	return core.BattleSummary{
		EndTime:       end,
		Outcome:       string(res.Outcome),
		Rounds:        res.Rounds,
		Actions:       res.Actions,
		Attacks:       res.Attacks,
		Moves:         res.Moves,
		PlayerAlive:   core.SnapshotArmy(aliveArmy(player)),
		ComputerAlive: core.SnapshotArmy(aliveArmy(computer)),
	}
}

func aliveArmy(a *core.Army) *core.Army {
	if a == nil {
		return nil
	}
	return &core.Army{Units: a.AliveUnits()}
}
