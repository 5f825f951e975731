// Package jobstore implements the Job Store (C1): the authoritative,
// process-lifetime mapping from job id to job record, with ordered
// per-id change notification to any number of concurrent observers.
//
// The record table is backed by an embedded, shared in-memory SQLite
// database (gorm.io/driver/sqlite) rather than a bespoke map: it gives
// "process-lifetime, never cross-restart" durability through a real
// relational engine, matching gorm/datatypes usage carried over from
// the teacher's job-run persistence layer, while the fan-out itself —
// something a SQL table cannot express — stays an in-process,
// channel-based registry.
package jobstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kthendral/optimizehub/internal/domain"
	"github.com/kthendral/optimizehub/internal/platform/logger"
	"github.com/kthendral/optimizehub/internal/realtime/bus"
)

// ErrDuplicateID is raised by Create when id already exists. Per §4.1
// Failure semantics this is a programmer error, not a client error —
// callers must allocate ids (uuid.New) rather than reuse one.
var ErrDuplicateID = fmt.Errorf("jobstore: duplicate id")

// ErrNotFound is raised by Update/Get when id is missing.
var ErrNotFound = fmt.Errorf("jobstore: not found")

// ErrRegresses is raised by Update when the transition function would
// move state backward or out of a terminal state (§3 Job record
// `state`: SUCCESS/FAILURE are terminal).
var ErrRegresses = fmt.Errorf("jobstore: illegal state regression")

// ChangeEvent is the post-image published after a successful Create
// or Update, or the synthetic final event on eviction/unknown id.
type ChangeEvent struct {
	Job *domain.Job
	// Gone marks a terminal "no longer tracked" event: either the id
	// was never known, or its record has just been evicted.
	Gone bool
}

const subscriberBuffer = 32

type subscriber struct {
	ch chan ChangeEvent
}

type row struct {
	ID       string `gorm:"primaryKey"`
	GroupID  string `gorm:"index"`
	Payload  datatypes.JSON
	State    string `gorm:"index"`
	Finished bool   `gorm:"index"`
	UpdatedAt time.Time
}

func (row) TableName() string { return "jobs" }

// Store is the Job Store. Safe for concurrent use.
type Store struct {
	db  *gorm.DB
	log *logger.Logger

	// mu guards subs and groupIndex, and also serializes each
	// Create/Update's record write + publish against Subscribe's
	// snapshot-read + registration, so a subscriber's initial snapshot
	// and the change-event stream it's registered for never overlap
	// (see Subscribe).
	mu   sync.Mutex
	subs map[uuid.UUID][]*subscriber
	groupIndex map[uuid.UUID][]uuid.UUID

	retention time.Duration
	bus       bus.Bus
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithRetention sets the result-retention window used by EvictExpired
// (§3 invariant 6, §9 "Open question — retention policy").
func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

// WithBus attaches a cross-process change-event forwarder (§6
// configuration, REALTIME_BUS). Every local publish is additionally
// forwarded to b on a best-effort basis; a forwarding failure is
// logged, never returned to the caller that triggered the publish,
// since the in-process subscriber fan-out already has the event.
func WithBus(b bus.Bus) Option {
	return func(s *Store) { s.bus = b }
}

// New opens an embedded, process-lifetime SQLite database in shared
// in-memory mode and returns a ready Store. The DSN ensures the
// in-memory database is shared across all connections of this
// process (not per-connection-private) and never touches disk.
func New(log *logger.Logger, opts ...Option) (*Store, error) {
	db, err := gorm.Open(sqlite.Open("file:jobstore?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("jobstore: open: %w", err)
	}
	if err := db.AutoMigrate(&row{}); err != nil {
		return nil, fmt.Errorf("jobstore: migrate: %w", err)
	}
	s := &Store{
		db:         db,
		log:        log.With("component", "JobStore"),
		subs:       make(map[uuid.UUID][]*subscriber),
		groupIndex: make(map[uuid.UUID][]uuid.UUID),
		retention:  time.Hour,
		bus:        bus.Noop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Create atomically inserts the initial record for id. Fails with
// ErrDuplicateID if id already exists.
func (s *Store) Create(job *domain.Job) error {
	payload, err := encode(job)
	if err != nil {
		return err
	}
	r := row{
		ID:        job.ID.String(),
		GroupID:   job.GroupID.String(),
		Payload:   payload,
		State:     string(job.State),
		Finished:  job.State.Terminal(),
		UpdatedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.Create(&r)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrDuplicateID, res.Error)
	}
	s.groupIndex[job.GroupID] = append(s.groupIndex[job.GroupID], job.ID)
	s.publishLocked(job.ID, ChangeEvent{Job: job.Clone()})
	return nil
}

// TransitionFunc mutates job in place and returns an error to abort
// the update (no record is written and no event is published).
type TransitionFunc func(job *domain.Job) error

// Update performs an atomic read-modify-write on id. The transition
// must not regress state (SUCCESS/FAILURE are terminal); attempting to
// do so returns ErrRegresses and leaves the stored record untouched.
func (s *Store) Update(id uuid.UUID, fn TransitionFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r row
	if err := s.db.Where("id = ?", id.String()).First(&r).Error; err != nil {
		return ErrNotFound
	}
	job, err := decode(r.Payload)
	if err != nil {
		return fmt.Errorf("jobstore: decode: %w", err)
	}
	before := job.State
	if err := fn(job); err != nil {
		return err
	}
	if before.Regresses(job.State) {
		return ErrRegresses
	}

	payload, err := encode(job)
	if err != nil {
		return err
	}
	res := s.db.Model(&row{}).Where("id = ?", id.String()).Updates(map[string]any{
		"payload":    payload,
		"state":      string(job.State),
		"finished":   job.State.Terminal(),
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return fmt.Errorf("jobstore: update: %w", res.Error)
	}

	s.publishLocked(id, ChangeEvent{Job: job.Clone()})
	return nil
}

// Get returns the current record for id, or ErrNotFound.
func (s *Store) Get(id uuid.UUID) (*domain.Job, error) {
	var r row
	if err := s.db.Where("id = ?", id.String()).First(&r).Error; err != nil {
		return nil, ErrNotFound
	}
	job, err := decode(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("jobstore: decode: %w", err)
	}
	return job, nil
}

// GroupTaskIDs returns the task ids belonging to groupID, or
// ErrNotFound if the group has no remaining (non-evicted) members.
func (s *Store) GroupTaskIDs(groupID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	ids, ok := s.groupIndex[groupID]
	s.mu.Unlock()
	if !ok || len(ids) == 0 {
		return nil, ErrNotFound
	}
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	return out, nil
}

// Subscribe yields the current snapshot immediately, then every
// subsequent change event for id until ctx is cancelled. The returned
// channel is closed when the subscription ends (context cancellation,
// overflow disconnect, or a terminal/gone event having been delivered).
//
// The snapshot read and the subscriber registration happen under the
// same mu critical section that Create/Update hold across their record
// write and publish, so a state transition is never split across the
// snapshot and the live stream: it lands entirely before the snapshot
// (and is therefore never replayed on the channel) or entirely after
// registration (and is therefore delivered exactly once, on the
// channel, never folded into the snapshot too). Delivery is in causal
// order with Update and drops no events short of an overflow
// disconnect (§4.1).
func (s *Store) Subscribe(ctx context.Context, id uuid.UUID) <-chan ChangeEvent {
	out := make(chan ChangeEvent, subscriberBuffer)

	s.mu.Lock()
	var r row
	err := s.db.Where("id = ?", id.String()).First(&r).Error
	var current *domain.Job
	if err == nil {
		current, err = decode(r.Payload)
	}
	if err != nil {
		s.mu.Unlock()
		// Unknown id: single "gone" event then close (§4.6 step 2).
		go func() {
			out <- ChangeEvent{Gone: true}
			close(out)
		}()
		return out
	}

	sub := &subscriber{ch: make(chan ChangeEvent, subscriberBuffer)}
	s.subs[id] = append(s.subs[id], sub)
	s.mu.Unlock()

	go func() {
		defer close(out)
		defer s.unsubscribe(id, sub)

		select {
		case out <- ChangeEvent{Job: current}:
		case <-ctx.Done():
			return
		}
		if current.State.Terminal() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.ch:
				if !ok {
					// overflow disconnect signalled by publishLocked()
					select {
					case out <- ChangeEvent{Gone: true}:
					case <-ctx.Done():
					}
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				if ev.Gone || (ev.Job != nil && ev.Job.State.Terminal()) {
					return
				}
			}
		}
	}()

	return out
}

func (s *Store) unsubscribe(id uuid.UUID, sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.subs[id]
	for i, x := range list {
		if x == sub {
			s.subs[id] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(s.subs[id]) == 0 {
		delete(s.subs, id)
	}
}

// publishLocked fans a change event out to every subscriber of id. A
// subscriber whose buffer is full is disconnected by closing its
// channel rather than blocking the writer (§4.1 Design, §9
// "Backpressure choice"). Callers must hold s.mu; this lets
// Create/Update publish within the same critical section that commits
// the record, which Subscribe relies on (see Subscribe).
func (s *Store) publishLocked(id uuid.UUID, ev ChangeEvent) {
	s.forwardToBus(id, ev)

	subs := s.subs[id]
	live := subs[:0:0]
	for _, sub := range subs {
		select {
		case sub.ch <- ev:
			live = append(live, sub)
		default:
			s.log.Warn("subscriber overflow, disconnecting", "job_id", id.String())
			close(sub.ch)
		}
	}
	if len(live) == 0 {
		delete(s.subs, id)
	} else {
		s.subs[id] = live
	}
}

// EvictExpired removes records whose terminal timestamp plus the
// retention window is at or before now, notifying any remaining
// stragglers with a final "gone" event (§3 invariant 6, §4.1).
func (s *Store) EvictExpired(now time.Time) (int, error) {
	var rows []row
	if err := s.db.Where("finished = ?", true).Find(&rows).Error; err != nil {
		return 0, err
	}
	evicted := 0
	for _, r := range rows {
		job, err := decode(r.Payload)
		if err != nil || job.FinishedAt == nil {
			continue
		}
		if job.FinishedAt.Add(s.retention).After(now) {
			continue
		}
		if err := s.db.Where("id = ?", r.ID).Delete(&row{}).Error; err != nil {
			continue
		}
		id, perr := uuid.Parse(r.ID)
		if perr == nil {
			s.mu.Lock()
			s.publishLocked(id, ChangeEvent{Gone: true})
			gid, gerr := uuid.Parse(r.GroupID)
			if gerr == nil {
				remaining := s.groupIndex[gid][:0]
				for _, x := range s.groupIndex[gid] {
					if x != id {
						remaining = append(remaining, x)
					}
				}
				if len(remaining) == 0 {
					delete(s.groupIndex, gid)
				} else {
					s.groupIndex[gid] = remaining
				}
			}
			s.mu.Unlock()
		}
		evicted++
	}
	return evicted, nil
}

// RunEvictionSweep blocks, calling EvictExpired on every tick, until
// ctx is cancelled. Intended to run as a single background goroutine
// started alongside the worker pool.
func (s *Store) RunEvictionSweep(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n, err := s.EvictExpired(now); err != nil {
				s.log.Warn("eviction sweep failed", "error", err)
			} else if n > 0 {
				s.log.Debug("evicted expired jobs", "count", n)
			}
		}
	}
}

// forwardToBus publishes ev to the configured cross-process bus,
// fire-and-forget. A nil *domain.Job (the Gone case) forwards with no
// payload; encode failures and publish failures are logged, never
// surfaced to the caller that drove the local state transition.
func (s *Store) forwardToBus(id uuid.UUID, ev ChangeEvent) {
	wire := bus.Event{JobID: id.String(), Gone: ev.Gone}
	if ev.Job != nil {
		payload, err := jobMarshal(ev.Job)
		if err != nil {
			s.log.Warn("failed to encode change event for bus forwarding", "job_id", id.String(), "error", err.Error())
			return
		}
		wire.Job = payload
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.bus.Publish(ctx, wire); err != nil {
			s.log.Warn("bus publish failed", "job_id", id.String(), "error", err.Error())
		}
	}()
}

// RunBusForwarder subscribes to the configured cross-process bus and
// logs every event received from another process (§6 configuration,
// REALTIME_BUS). This process never reconstructs another process's
// authoritative record from a forwarded event — see the package doc
// in internal/realtime/bus — so the forwarder's role here is limited
// to observability: it exists so an operator running with
// REALTIME_BUS=redis can confirm cross-process delivery is working.
// Blocks until ctx is cancelled.
func (s *Store) RunBusForwarder(ctx context.Context) error {
	return s.bus.StartForwarder(ctx, func(ev bus.Event) {
		if ev.Gone {
			s.log.Debug("received remote job-gone event", "job_id", ev.JobID)
			return
		}
		s.log.Debug("received remote job change event", "job_id", ev.JobID)
	})
}

func encode(job *domain.Job) (datatypes.JSON, error) {
	b, err := jobMarshal(job)
	if err != nil {
		return nil, fmt.Errorf("jobstore: encode: %w", err)
	}
	return datatypes.JSON(b), nil
}

func decode(payload datatypes.JSON) (*domain.Job, error) {
	return jobUnmarshal([]byte(payload))
}
