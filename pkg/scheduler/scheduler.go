// Package scheduler turns workflow schedule triggers into cron jobs and one-shot timers that run
// the workflow.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/robfig/cron/v3"
)

// MaxTimerDelay is the longest delay a one-shot schedule accepts, 2^31-1 milliseconds.
const MaxTimerDelay = 2147483647 * time.Millisecond

var (
	ErrInvalidCron         = errors.New("invalid cron expression")
	ErrScheduleInPast      = errors.New("scheduled time is in the past")
	ErrScheduleTooFar      = errors.New("scheduled time is too far in the future")
	ErrUnknownScheduleType = errors.New("unknown schedule type")
)

// SchedulingError is a schedule that could not be installed. The workflow stays unscheduled.
type SchedulingError struct {
	WorkflowID string
	Err        error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("scheduling workflow %s: %v", e.WorkflowID, e.Err)
}

func (e *SchedulingError) Unwrap() error {
	return e.Err
}

// Runner executes a stored workflow. *workflow.Runner implements it.
type Runner interface {
	RunByID(ctx context.Context, workflowID string, source models.ExecutionSource, triggerData map[string]any) (*models.ExecutionLog, error)
}

// ActiveWorkflows lists the workflows to schedule at start.
type ActiveWorkflows interface {
	GetActive(ctx context.Context) ([]*models.Workflow, error)
}

type EntryKind string

const (
	EntryKindCron EntryKind = "cron"
	EntryKindOnce EntryKind = "once"
)

// Entry describes one installed schedule.
type Entry struct {
	WorkflowID string
	Kind       EntryKind

	// Spec is the cron expression, or the target time for one-shot entries.
	Spec string
	Next time.Time
}

type task struct {
	kind   EntryKind
	spec   string
	cronID cron.EntryID
	timer  *time.Timer
	target time.Time
}

// Scheduler holds at most one schedule per workflow id.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*task

	cron      *cron.Cron
	runner    Runner
	workflows ActiveWorkflows
	logger    *slog.Logger

	location   *time.Location
	serialized bool
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Scheduler)

// WithLocation sets the zone used for specific dates whose timezone is set but not understood.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		s.location = loc
	}
}

// SkipIfStillRunning skips a cron tick while the previous run of the same workflow is in flight.
// By default runs of one workflow may overlap.
func SkipIfStillRunning() Option {
	return func(s *Scheduler) {
		s.serialized = true
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func New(runner Runner, workflows ActiveWorkflows, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		entries:   map[string]*task{},
		runner:    runner,
		workflows: workflows,
		logger:    logger.With("module", "scheduler"),
		location:  time.Local,
		now:       time.Now,
		ctx:       context.Background(),
	}

	for _, opt := range opts {
		opt(s)
	}

	cronLogger := cronLogger{logger: s.logger}

	wrappers := []cron.JobWrapper{cron.Recover(cronLogger)}
	if s.serialized {
		wrappers = append(wrappers, cron.SkipIfStillRunning(cronLogger))
	}

	s.cron = cron.New(cron.WithChain(wrappers...), cron.WithLogger(cronLogger))

	return s
}

// Start begins firing cron entries. Runs started by the scheduler use ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.InfoContext(ctx, "scheduler started")
}

// Stop removes every entry and waits for running cron jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	for id, t := range s.entries {
		if t.timer != nil {
			t.timer.Stop()
		}

		delete(s.entries, id)
	}

	cancel := s.cancel
	s.mu.Unlock()

	stopped := s.cron.Stop()

	var err error

	select {
	case <-stopped.Done():
	case <-ctx.Done():
		err = ctx.Err()
	}

	if cancel != nil {
		cancel()
	}

	s.logger.InfoContext(ctx, "scheduler stopped")

	return err
}

// Initialize schedules every active workflow. Workflows whose schedule cannot be installed are
// logged and skipped; only a failure to list workflows is returned.
func (s *Scheduler) Initialize(ctx context.Context) error {
	workflows, err := s.workflows.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active workflows: %w", err)
	}

	scheduled := 0

	for _, wf := range workflows {
		if err := s.Schedule(ctx, wf); err != nil {
			continue
		}

		if _, ok := s.Entry(wf.ID); ok {
			scheduled++
		}
	}

	s.logger.InfoContext(ctx, "scheduler initialized", "active_workflows", len(workflows), "scheduled", scheduled)

	return nil
}

// Schedule installs the schedule of the workflow's first trigger, replacing any entry the workflow
// already has. Workflows without a schedule trigger are left unscheduled and nil is returned.
func (s *Scheduler) Schedule(ctx context.Context, wf *models.Workflow) error {
	s.Unschedule(wf.ID)

	cfg := wf.ScheduleConfig()
	if len(wf.Nodes) == 0 || cfg == nil {
		return nil
	}

	logger := s.logger.With("workflow_id", wf.ID, "schedule_type", cfg.ScheduleType)

	var err error

	switch cfg.ScheduleType {
	case models.ScheduleTypeRecurring, models.ScheduleTypeCron:
		err = s.scheduleCron(wf.ID, cfg)
	case models.ScheduleTypeSpecificDate:
		err = s.scheduleOnce(wf.ID, cfg)
	default:
		err = fmt.Errorf("%w %q", ErrUnknownScheduleType, cfg.ScheduleType)
	}

	if err != nil {
		logger.WarnContext(ctx, "workflow not scheduled", "error", err)

		return &SchedulingError{WorkflowID: wf.ID, Err: err}
	}

	if entry, ok := s.Entry(wf.ID); ok {
		logger.InfoContext(ctx, "workflow scheduled", "spec", entry.Spec)
	}

	return nil
}

func (s *Scheduler) scheduleCron(workflowID string, cfg *models.ScheduleConfig) error {
	spec, err := cfg.CronSpec()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCron, err)
	}

	schedule, err := models.ParseCron(spec)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCron, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.fire(workflowID)
	}))

	s.replaceLocked(workflowID, &task{kind: EntryKindCron, spec: spec, cronID: id})

	return nil
}

func (s *Scheduler) scheduleOnce(workflowID string, cfg *models.ScheduleConfig) error {
	target, err := cfg.TargetTime(s.location)
	if err != nil {
		return err
	}

	delay := target.Sub(s.now())

	switch {
	case delay <= 0:
		return fmt.Errorf("%w: %s", ErrScheduleInPast, target.Format(time.RFC3339))
	case delay > MaxTimerDelay:
		return fmt.Errorf("%w: %s", ErrScheduleTooFar, target.Format(time.RFC3339))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &task{kind: EntryKindOnce, spec: target.Format(time.RFC3339), target: target}
	t.timer = time.AfterFunc(delay, func() {
		// A one-shot entry removes itself before running, unless it was replaced meanwhile.
		s.mu.Lock()
		if s.entries[workflowID] != t {
			s.mu.Unlock()

			return
		}

		delete(s.entries, workflowID)
		s.mu.Unlock()

		s.fire(workflowID)
	})

	s.replaceLocked(workflowID, t)

	return nil
}

// Unschedule cancels the workflow's entry. It is a no-op for unscheduled workflows.
func (s *Scheduler) Unschedule(workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelLocked(workflowID) {
		s.logger.Debug("workflow unscheduled", "workflow_id", workflowID)
	}
}

// replaceLocked stores t as the workflow's only entry, cancelling whatever a concurrent Schedule
// installed in between. s.mu must be held.
func (s *Scheduler) replaceLocked(workflowID string, t *task) {
	s.cancelLocked(workflowID)
	s.entries[workflowID] = t
}

func (s *Scheduler) cancelLocked(workflowID string) bool {
	t, ok := s.entries[workflowID]
	if !ok {
		return false
	}

	switch t.kind {
	case EntryKindCron:
		s.cron.Remove(t.cronID)
	case EntryKindOnce:
		t.timer.Stop()
	}

	delete(s.entries, workflowID)

	return true
}

// Entry returns the installed schedule of a workflow.
func (s *Scheduler) Entry(workflowID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.entries[workflowID]
	if !ok {
		return Entry{}, false
	}

	return s.entry(workflowID, t), true
}

// Entries returns every installed schedule ordered by workflow id.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, 0, len(s.entries))
	for id, t := range s.entries {
		entries = append(entries, s.entry(id, t))
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].WorkflowID < entries[j].WorkflowID
	})

	return entries
}

func (s *Scheduler) entry(workflowID string, t *task) Entry {
	entry := Entry{WorkflowID: workflowID, Kind: t.kind, Spec: t.spec, Next: t.target}
	if t.kind == EntryKindCron {
		entry.Next = s.cron.Entry(t.cronID).Next
	}

	return entry
}

func (s *Scheduler) fire(workflowID string) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	logger := s.logger.With("workflow_id", workflowID)
	logger.InfoContext(ctx, "scheduled run starting")

	entry, err := s.runner.RunByID(ctx, workflowID, models.ExecutionSourceSchedule, nil)
	if err != nil {
		logger.ErrorContext(ctx, "scheduled run failed", "error", err)

		return
	}

	if entry == nil {
		logger.InfoContext(ctx, "scheduled workflow has nothing to run, unscheduling")
		s.Unschedule(workflowID)

		return
	}

	logger.InfoContext(ctx, "scheduled run finished", "execution_id", entry.ID, "status", entry.Status)
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
