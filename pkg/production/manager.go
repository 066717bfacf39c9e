package production

import (
	"container/heap"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gravitas-games/slotcore/pkg/inventory"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("production: job not found")

// Manager runs production jobs against slot inventories. Call Update from
// the game loop.
type Manager struct {
	id              string
	registry        *RecipeRegistry
	inventories     InventoryProvider
	events          EventBus
	modifierSources []ModifierSource
	logger          *zap.Logger
	clock           func() time.Time
	rng             *rand.Rand

	mu        sync.Mutex
	jobs      map[JobID]*Job
	active    *jobHeap
	blocked   map[JobID]*Job
	nextJobID int64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock replaces time.Now for job start times.
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithRand sets the source used to roll probabilistic outputs.
func WithRand(r *rand.Rand) ManagerOption {
	return func(m *Manager) {
		if r != nil {
			m.rng = r
		}
	}
}

// WithModifierSources adds modifier sources consulted when a job starts.
func WithModifierSources(sources ...ModifierSource) ManagerOption {
	return func(m *Manager) {
		m.modifierSources = append(m.modifierSources, sources...)
	}
}

// NewManager creates a production manager. A nil event bus drops events.
func NewManager(id string, registry *RecipeRegistry, inventories InventoryProvider, events EventBus, opts ...ManagerOption) *Manager {
	if events == nil {
		events = NullEventBus{}
	}
	m := &Manager{
		id:          id,
		registry:    registry,
		inventories: inventories,
		events:      events,
		logger:      zap.NewNop(),
		clock:       time.Now,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		jobs:        make(map[JobID]*Job),
		active:      &jobHeap{},
		blocked:     make(map[JobID]*Job),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// ID returns the manager's identifier.
func (m *Manager) ID() string { return m.id }

// StartProduction consumes the recipe inputs from the inventory and starts a
// single cycle.
func (m *Manager) StartProduction(recipeID RecipeID, owner inventory.OwnerID, inventoryID string) (JobID, error) {
	return m.start(recipeID, owner, inventoryID, false)
}

// StartRepeatingProduction starts a job that restarts after every cycle. When
// inputs run out or outputs back up, the job waits and resumes on a later
// Update.
func (m *Manager) StartRepeatingProduction(recipeID RecipeID, owner inventory.OwnerID, inventoryID string) (JobID, error) {
	return m.start(recipeID, owner, inventoryID, true)
}

func (m *Manager) start(recipeID RecipeID, owner inventory.OwnerID, inventoryID string, repeat bool) (JobID, error) {
	recipe := m.registry.Lookup(recipeID)
	if recipe == nil {
		return "", fmt.Errorf("recipe not found: %s", recipeID)
	}
	mods := m.resolveModifiers(owner, recipeID)
	inv, err := m.inventories.GetInventory(inventoryID)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextJobID++
	job := &Job{
		ID:                JobID(fmt.Sprintf("%s-%d", m.id, m.nextJobID)),
		Recipe:            recipeID,
		Owner:             owner,
		InventoryID:       inventoryID,
		Modifiers:         mods,
		EffectiveInputs:   applyInputModifiers(recipe.Inputs, mods.InputCost),
		EffectiveOutputs:  applyOutputModifiers(recipe.Outputs, mods.OutputYield),
		EffectiveDuration: applyDurationModifier(recipe.Duration, mods.TimeSpeed),
		Repeat:            repeat,
	}
	if err := m.inventories.ConsumeItems(inv, job.EffectiveInputs); err != nil {
		return "", err
	}
	m.jobs[job.ID] = job
	m.run(job, m.clock())
	return job.ID, nil
}

func (m *Manager) run(job *Job, now time.Time) {
	job.State = JobRunning
	job.StartTime = now
	job.EndTime = now.Add(job.EffectiveDuration)
	delete(m.blocked, job.ID)
	heap.Push(m.active, job)
	m.publish(EventJobStarted, job, now, nil)
}

// Update finishes every job due at now and retries blocked jobs.
func (m *Manager) Update(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]JobID, 0, len(m.blocked))
	for id := range m.blocked {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		job := m.blocked[id]
		if job.pending != nil {
			m.finish(job, now)
		} else {
			m.restart(job, now)
		}
	}
	for _, job := range m.active.due(now) {
		m.finish(job, now)
	}
}

func (m *Manager) finish(job *Job, now time.Time) {
	inv, err := m.inventories.GetInventory(job.InventoryID)
	if err != nil {
		m.fail(job, now, err)
		return
	}
	if job.pending == nil {
		job.pending = m.rollOutputs(job.EffectiveOutputs)
	}
	if err := m.inventories.AddItems(inv, job.pending); err != nil {
		if errors.Is(err, ErrOutputFull) {
			m.block(job, now, err)
			return
		}
		m.fail(job, now, err)
		return
	}
	job.pending = nil
	job.CyclesCompleted++
	job.State = JobComplete
	delete(m.blocked, job.ID)
	m.publish(EventJobCompleted, job, now, nil)
	if job.Repeat {
		m.restart(job, now)
		return
	}
	delete(m.jobs, job.ID)
}

func (m *Manager) restart(job *Job, now time.Time) {
	inv, err := m.inventories.GetInventory(job.InventoryID)
	if err != nil {
		m.fail(job, now, err)
		return
	}
	if err := m.inventories.ConsumeItems(inv, job.EffectiveInputs); err != nil {
		if errors.Is(err, ErrInsufficient) {
			m.block(job, now, err)
			return
		}
		m.fail(job, now, err)
		return
	}
	m.run(job, now)
}

func (m *Manager) block(job *Job, now time.Time, err error) {
	if job.State == JobBlocked {
		return
	}
	job.State = JobBlocked
	m.blocked[job.ID] = job
	m.publish(EventJobBlocked, job, now, err)
}

func (m *Manager) fail(job *Job, now time.Time, err error) {
	m.logger.Warn("production job failed",
		zap.String("job", string(job.ID)),
		zap.String("recipe", string(job.Recipe)),
		zap.Error(err))
	job.State = JobFailed
	delete(m.blocked, job.ID)
	delete(m.jobs, job.ID)
	m.publish(EventJobFailed, job, now, err)
}

func (m *Manager) publish(t EventType, job *Job, now time.Time, err error) {
	ev := Event{Type: t, Job: *job, Timestamp: now}
	ev.Job.pending = nil
	if err != nil {
		ev.Err = err.Error()
	}
	m.events.Publish(ev)
}

// rollOutputs applies probability to outputs and returns what was produced.
func (m *Manager) rollOutputs(outputs []ItemYield) []ItemYield {
	result := make([]ItemYield, 0, len(outputs))
	for _, output := range outputs {
		if output.Probability >= 1 || m.rng.Float64() < output.Probability {
			result = append(result, output)
		}
	}
	return result
}

// CancelProduction stops a job without refunding consumed inputs.
func (m *Manager) CancelProduction(id JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, exists := m.jobs[id]
	if !exists {
		return ErrJobNotFound
	}
	m.cancel(job)
	return nil
}

// CancelProductionWithRefund stops a job and gives back what it holds: the
// consumed inputs of a running cycle, or the yields of a cycle waiting for
// output space. Whatever does not fit back into the inventory is returned.
func (m *Manager) CancelProductionWithRefund(id JobID) ([]inventory.Stack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, exists := m.jobs[id]
	if !exists {
		return nil, ErrJobNotFound
	}

	var refund []ItemYield
	switch {
	case job.State == JobRunning:
		for _, req := range job.EffectiveInputs {
			if req.Consume {
				refund = append(refund, ItemYield{Item: req.Item, Quantity: req.Quantity, Probability: 1})
			}
		}
	case job.pending != nil:
		refund = append(refund, job.pending...)
	}
	m.cancel(job)
	if len(refund) == 0 {
		return nil, nil
	}

	inv, err := m.inventories.GetInventory(job.InventoryID)
	if err != nil {
		return yieldStacks(refund), fmt.Errorf("failed to get inventory for refund: %w", err)
	}
	return m.inventories.RefundItems(inv, refund), nil
}

func (m *Manager) cancel(job *Job) {
	m.active.remove(job.ID)
	delete(m.blocked, job.ID)
	delete(m.jobs, job.ID)
	job.pending = nil
	job.State = JobCancelled
	m.publish(EventJobCancelled, job, m.clock(), nil)
}

func yieldStacks(items []ItemYield) []inventory.Stack {
	out := make([]inventory.Stack, 0, len(items))
	for _, y := range items {
		if y.Quantity > 0 {
			out = append(out, inventory.NewStack(y.Item, y.Quantity))
		}
	}
	return out
}

// GetJob returns a copy of the job.
func (m *Manager) GetJob(id JobID) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	out := *job
	out.pending = nil
	return out, true
}

// JobsFor returns copies of the jobs running on an inventory.
func (m *Manager) JobsFor(inventoryID string) []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Job
	for _, job := range m.jobs {
		if job.InventoryID == inventoryID {
			cp := *job
			cp.pending = nil
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// JobCount returns the number of live jobs.
func (m *Manager) JobCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

func (m *Manager) resolveModifiers(owner inventory.OwnerID, recipeID RecipeID) Modifiers {
	result := DefaultModifiers()
	for _, source := range m.modifierSources {
		result = result.Combine(source.GetModifiers(owner, recipeID))
	}
	return result
}
