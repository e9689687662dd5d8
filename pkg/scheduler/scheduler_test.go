package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/scheduler"
	"github.com/BabaVossRS3/FlowForge/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls []string
	fired chan string
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{fired: make(chan string, 10)}
}

func (r *recordingRunner) RunByID(_ context.Context, workflowID string, source models.ExecutionSource, _ map[string]any) (*models.ExecutionLog, error) {
	r.mu.Lock()
	r.calls = append(r.calls, workflowID+":"+string(source))
	r.mu.Unlock()

	r.fired <- workflowID

	return &models.ExecutionLog{ID: "exec-1", Status: models.ExecutionStatusSuccess}, nil
}

func (r *recordingRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

type staticWorkflows struct {
	workflows []*models.Workflow
	err       error
}

func (s staticWorkflows) GetActive(context.Context) ([]*models.Workflow, error) {
	return s.workflows, s.err
}

func scheduled(cfg *models.ScheduleConfig) *models.Workflow {
	return testutil.CreateTestWorkflow(
		testutil.WithActive(true),
		testutil.WithGraph([]*models.Node{testutil.ScheduleTrigger("trigger-1", cfg)}, nil),
	)
}

func newScheduler(t *testing.T, runner scheduler.Runner, opts ...scheduler.Option) *scheduler.Scheduler {
	t.Helper()

	s := scheduler.New(runner, staticWorkflows{}, slog.Default(), opts...)

	t.Cleanup(func() {
		_ = s.Stop(context.Background())
	})

	return s
}

func TestSchedule_Recurring(t *testing.T) {
	t.Parallel()

	tests := []struct {
		interval string
		spec     string
	}{
		{"5m", "*/5 * * * *"},
		{"1h", "0 * * * *"},
		{"bogus", "*/5 * * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.interval, func(t *testing.T) {
			t.Parallel()

			s := newScheduler(t, newRecordingRunner())
			wf := scheduled(&models.ScheduleConfig{ScheduleType: models.ScheduleTypeRecurring, Interval: tt.interval})

			require.NoError(t, s.Schedule(context.Background(), wf))

			entry, ok := s.Entry(wf.ID)
			require.True(t, ok)
			assert.Equal(t, scheduler.EntryKindCron, entry.Kind)
			assert.Equal(t, tt.spec, entry.Spec)
		})
	}
}

func TestSchedule_InvalidCronStaysUnscheduled(t *testing.T) {
	t.Parallel()

	s := newScheduler(t, newRecordingRunner())
	wf := scheduled(&models.ScheduleConfig{ScheduleType: models.ScheduleTypeCron, CronExpression: "every day at noon"})

	err := s.Schedule(context.Background(), wf)

	var schedErr *scheduler.SchedulingError

	require.ErrorAs(t, err, &schedErr)
	assert.Equal(t, wf.ID, schedErr.WorkflowID)
	require.ErrorIs(t, err, scheduler.ErrInvalidCron)

	_, ok := s.Entry(wf.ID)
	assert.False(t, ok)
}

func TestSchedule_SpecificDateBounds(t *testing.T) {
	t.Parallel()

	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		date string
		want error
	}{
		{name: "past", date: "2029-12-31", want: scheduler.ErrScheduleInPast},
		{name: "exactly now", date: "2030-01-01", want: scheduler.ErrScheduleInPast},
		{name: "beyond max timer delay", date: "2030-03-01", want: scheduler.ErrScheduleTooFar},
		{name: "invalid date", date: "soon", want: models.ErrInvalidScheduleDate},
		{name: "missing date", date: "", want: models.ErrInvalidScheduleDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newScheduler(t, newRecordingRunner(), scheduler.WithClock(func() time.Time { return now }))
			wf := scheduled(&models.ScheduleConfig{
				ScheduleType: models.ScheduleTypeSpecificDate,
				SpecificDate: tt.date,
				SpecificTime: "12:00",
				Timezone:     "UTC",
			})

			require.ErrorIs(t, s.Schedule(context.Background(), wf), tt.want)

			_, ok := s.Entry(wf.ID)
			assert.False(t, ok)
		})
	}
}

func TestSchedule_SpecificDateFiresOnceAndRemovesItself(t *testing.T) {
	t.Parallel()

	target := time.Date(2030, 6, 1, 12, 30, 0, 0, time.UTC)
	runner := newRecordingRunner()
	s := newScheduler(t, runner, scheduler.WithClock(func() time.Time { return target.Add(-50 * time.Millisecond) }))

	wf := scheduled(&models.ScheduleConfig{
		ScheduleType: models.ScheduleTypeSpecificDate,
		SpecificDate: "2030-06-01",
		SpecificTime: "14:30",
		Timezone:     "UTC+2",
	})

	require.NoError(t, s.Schedule(context.Background(), wf))

	entry, ok := s.Entry(wf.ID)
	require.True(t, ok)
	assert.Equal(t, scheduler.EntryKindOnce, entry.Kind)
	assert.True(t, entry.Next.Equal(target))

	select {
	case fired := <-runner.fired:
		assert.Equal(t, wf.ID, fired)
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot schedule did not fire")
	}

	assert.Eventually(t, func() bool {
		_, ok := s.Entry(wf.ID)

		return !ok
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{wf.ID + ":schedule"}, runner.Calls())
}

func TestSchedule_SpecificDateWithoutTimezoneIsUTC(t *testing.T) {
	t.Parallel()

	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newScheduler(t, newRecordingRunner(),
		scheduler.WithClock(func() time.Time { return now }),
		scheduler.WithLocation(time.FixedZone("host", 5*60*60)),
	)

	wf := scheduled(&models.ScheduleConfig{
		ScheduleType: models.ScheduleTypeSpecificDate,
		SpecificDate: "2030-01-01",
		SpecificTime: "10:00",
	})

	require.NoError(t, s.Schedule(context.Background(), wf))

	entry, ok := s.Entry(wf.ID)
	require.True(t, ok)
	assert.True(t, entry.Next.Equal(time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)), entry.Next)
}

func TestSchedule_SpecificDateWithoutTimeStaysUnscheduled(t *testing.T) {
	t.Parallel()

	s := newScheduler(t, newRecordingRunner())
	wf := scheduled(&models.ScheduleConfig{
		ScheduleType: models.ScheduleTypeSpecificDate,
		SpecificDate: "2030-01-01",
		Timezone:     "UTC",
	})

	require.ErrorIs(t, s.Schedule(context.Background(), wf), models.ErrInvalidScheduleDate)

	_, ok := s.Entry(wf.ID)
	assert.False(t, ok)
}

func TestSchedule_UnknownType(t *testing.T) {
	t.Parallel()

	s := newScheduler(t, newRecordingRunner())
	wf := scheduled(&models.ScheduleConfig{ScheduleType: "fortnightly"})

	require.ErrorIs(t, s.Schedule(context.Background(), wf), scheduler.ErrUnknownScheduleType)
	assert.Empty(t, s.Entries())
}

func TestSchedule_NothingToSchedule(t *testing.T) {
	t.Parallel()

	s := newScheduler(t, newRecordingRunner())

	manual := testutil.CreateTestWorkflow()
	empty := testutil.CreateTestWorkflow(testutil.WithGraph(nil, nil))
	noConfig := testutil.CreateTestWorkflow(testutil.WithGraph([]*models.Node{
		{ID: "t", Kind: models.NodeKindTrigger, Config: models.NodeConfig{Trigger: &models.TriggerConfig{Type: models.TriggerTypeSchedule}}},
	}, nil))

	for _, wf := range []*models.Workflow{manual, empty, noConfig} {
		require.NoError(t, s.Schedule(context.Background(), wf))
	}

	assert.Empty(t, s.Entries())
}

func TestSchedule_ReplacesExistingEntry(t *testing.T) {
	t.Parallel()

	s := newScheduler(t, newRecordingRunner())
	wf := scheduled(&models.ScheduleConfig{ScheduleType: models.ScheduleTypeRecurring, Interval: "1h"})

	require.NoError(t, s.Schedule(context.Background(), wf))

	wf.Nodes[0].Config.Trigger.Schedule = &models.ScheduleConfig{ScheduleType: models.ScheduleTypeCron, CronExpression: "0 9 * * 1-5"}
	require.NoError(t, s.Schedule(context.Background(), wf))

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "0 9 * * 1-5", entries[0].Spec)
}

func TestUnschedule_IsIdempotent(t *testing.T) {
	t.Parallel()

	s := newScheduler(t, newRecordingRunner())
	wf := scheduled(&models.ScheduleConfig{ScheduleType: models.ScheduleTypeRecurring, Interval: "5m"})

	require.NoError(t, s.Schedule(context.Background(), wf))

	s.Unschedule(wf.ID)
	s.Unschedule(wf.ID)
	s.Unschedule("never-scheduled")

	_, ok := s.Entry(wf.ID)
	assert.False(t, ok)
}

func TestInitialize_SchedulesActiveWorkflows(t *testing.T) {
	t.Parallel()

	recurring := scheduled(&models.ScheduleConfig{ScheduleType: models.ScheduleTypeRecurring, Interval: "15m"})
	broken := scheduled(&models.ScheduleConfig{ScheduleType: models.ScheduleTypeCron, CronExpression: "nope"})
	manual := testutil.CreateTestWorkflow(testutil.WithActive(true))

	s := scheduler.New(newRecordingRunner(), staticWorkflows{workflows: []*models.Workflow{recurring, broken, manual}}, slog.Default())
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	require.NoError(t, s.Initialize(context.Background()))

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, recurring.ID, entries[0].WorkflowID)
	assert.Equal(t, "*/15 * * * *", entries[0].Spec)
}

func TestInitialize_LoadFailure(t *testing.T) {
	t.Parallel()

	s := scheduler.New(newRecordingRunner(), staticWorkflows{err: errors.New("db down")}, slog.Default())

	err := s.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestCronEntryFires(t *testing.T) {
	t.Parallel()

	runner := newRecordingRunner()
	s := newScheduler(t, runner)
	wf := scheduled(&models.ScheduleConfig{ScheduleType: models.ScheduleTypeCron, CronExpression: "@every 1s"})

	require.NoError(t, s.Schedule(context.Background(), wf))
	s.Start(context.Background())

	select {
	case fired := <-runner.fired:
		assert.Equal(t, wf.ID, fired)
	case <-time.After(5 * time.Second):
		t.Fatal("cron entry did not fire")
	}

	entry, ok := s.Entry(wf.ID)
	require.True(t, ok)
	assert.False(t, entry.Next.IsZero())
}

func TestStop_RemovesEntries(t *testing.T) {
	t.Parallel()

	s := scheduler.New(newRecordingRunner(), staticWorkflows{}, slog.Default())
	s.Start(context.Background())

	wf := scheduled(&models.ScheduleConfig{ScheduleType: models.ScheduleTypeRecurring, Interval: "1m"})
	require.NoError(t, s.Schedule(context.Background(), wf))

	require.NoError(t, s.Stop(context.Background()))
	assert.Empty(t, s.Entries())
}

func TestSchedule_ConcurrentCallsKeepOneEntry(t *testing.T) {
	t.Parallel()

	s := newScheduler(t, newRecordingRunner())
	wf := scheduled(&models.ScheduleConfig{ScheduleType: models.ScheduleTypeRecurring, Interval: "5m"})

	var wg sync.WaitGroup

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, s.Schedule(context.Background(), wf))
		}()
	}

	wg.Wait()

	assert.Len(t, s.Entries(), 1)
}
