// Package memory keeps all planner data in process memory. Transactions run
// against a copy of the data that replaces the live copy on success.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Kerhoff/planner/internal/models"
	"github.com/Kerhoff/planner/internal/repository"
)

type data struct {
	nextID      int64
	calendars   map[int64]*models.Calendar
	items       map[int64]*models.CalendarItem
	monthPlans  map[int64]*models.MonthPlan
	weekPlans   map[int64]*models.WeekPlan
	bigTasks    map[int64]*models.BigTask
	memorables  map[int64]*models.MemorableEvent
	constraints map[int64]*models.UserConstraints
}

func newData() *data {
	return &data{
		calendars:   make(map[int64]*models.Calendar),
		items:       make(map[int64]*models.CalendarItem),
		monthPlans:  make(map[int64]*models.MonthPlan),
		weekPlans:   make(map[int64]*models.WeekPlan),
		bigTasks:    make(map[int64]*models.BigTask),
		memorables:  make(map[int64]*models.MemorableEvent),
		constraints: make(map[int64]*models.UserConstraints),
	}
}

// clone copies every record so a failed transaction leaves no trace.
func (d *data) clone() *data {
	c := newData()
	c.nextID = d.nextID
	for k, v := range d.calendars {
		cal := *v
		c.calendars[k] = &cal
	}
	for k, v := range d.items {
		c.items[k] = v.Clone()
	}
	for k, v := range d.monthPlans {
		c.monthPlans[k] = v.Clone()
	}
	for k, v := range d.weekPlans {
		w := *v
		c.weekPlans[k] = &w
	}
	for k, v := range d.bigTasks {
		b := *v
		c.bigTasks[k] = &b
	}
	for k, v := range d.memorables {
		m := *v
		c.memorables[k] = &m
	}
	for k, v := range d.constraints {
		c.constraints[k] = v.Clone()
	}
	return c
}

func (d *data) id() int64 {
	d.nextID++
	return d.nextID
}

// Store is an in-memory repository.Store.
type Store struct {
	mu   sync.Mutex
	data *data
	now  func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newData(), now: time.Now}
}

// Repos returns repositories where every call is its own transaction.
func (s *Store) Repos() repository.Repositories {
	return newRepositories(&session{store: s})
}

// WithinTx holds the store lock for the whole of fn, so transactions are
// serialized and user locks are implied.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(ctx, newRepositories(&session{store: s, tx: work})); err != nil {
		return err
	}
	s.data = work
	return nil
}

// ReadTx holds the store lock for the whole of fn and reads the live data.
func (s *Store) ReadTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(ctx, newRepositories(&session{store: s, tx: s.data}))
}

type session struct {
	store *Store
	tx    *data
}

func (s *session) do(fn func(d *data) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return fn(s.store.data)
}

func (s *session) now() time.Time {
	return s.store.now()
}

func newRepositories(s *session) repository.Repositories {
	return repository.Repositories{
		Calendars:   &calendarRepository{s: s},
		Items:       &itemRepository{s: s},
		MonthPlans:  &monthPlanRepository{s: s},
		WeekPlans:   &weekPlanRepository{s: s},
		BigTasks:    &bigTaskRepository{s: s},
		Memorables:  &memorableRepository{s: s},
		Constraints: &constraintsRepository{s: s},
		Locks:       noopLocker{},
	}
}

type noopLocker struct{}

func (noopLocker) LockUser(context.Context, int64) error { return nil }
