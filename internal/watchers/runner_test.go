package watchers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
)

// scriptedWatcher produces canned events on each check
type scriptedWatcher struct {
	name     string
	interval time.Duration
	initErr  error
	check    func(ctx context.Context) ([]interfaces.WatcherEvent, error)
	mu       sync.Mutex
	checks   int
}

func (w *scriptedWatcher) Name() string            { return w.name }
func (w *scriptedWatcher) Interval() time.Duration { return w.interval }
func (w *scriptedWatcher) Init(ctx context.Context) error {
	return w.initErr
}

func (w *scriptedWatcher) Check(ctx context.Context) ([]interfaces.WatcherEvent, error) {
	w.mu.Lock()
	w.checks++
	w.mu.Unlock()
	if w.check != nil {
		return w.check(ctx)
	}
	return nil, nil
}

func (w *scriptedWatcher) checkCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checks
}

type recordingBus struct {
	mu     sync.Mutex
	events []interfaces.Trigger
}

func (b *recordingBus) Subscribe(handler interfaces.EventHandler) error { return nil }
func (b *recordingBus) RegisterCustom(name string) interfaces.Trigger   { return interfaces.Trigger(name) }
func (b *recordingBus) Close() error                                    { return nil }

func (b *recordingBus) Publish(ctx context.Context, trigger interfaces.Trigger, payload map[string]interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, trigger)
	return nil
}

func (b *recordingBus) triggers() []interfaces.Trigger {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]interfaces.Trigger(nil), b.events...)
}

// recordingJobControl tracks lifecycle calls without a real manager
type recordingJobControl struct {
	mu        sync.Mutex
	submitted []interfaces.Job
	running   []string
	completed map[string]*models.JobResult
	outputs   []string
	stopped   []string
}

func newRecordingJobControl() *recordingJobControl {
	return &recordingJobControl{completed: make(map[string]*models.JobResult)}
}

func (c *recordingJobControl) Submit(ctx context.Context, job interfaces.Job) (string, error) {
	c.mu.Lock()
	c.submitted = append(c.submitted, job)
	c.mu.Unlock()
	if err := job.Start(ctx); err != nil {
		return "", err
	}
	return job.ID(), nil
}

func (c *recordingJobControl) Get(jobID string) (*models.Job, bool)               { return nil, false }
func (c *recordingJobControl) List(opts *interfaces.JobListOptions) []*models.Job { return nil }
func (c *recordingJobControl) MostRecentFinished() *models.Job                    { return nil }

func (c *recordingJobControl) Stop(ctx context.Context, jobID string) bool {
	c.mu.Lock()
	c.stopped = append(c.stopped, jobID)
	var target interfaces.Job
	for _, job := range c.submitted {
		if job.ID() == jobID {
			target = job
		}
	}
	c.mu.Unlock()
	if target == nil {
		return false
	}
	target.Stop()
	return true
}

func (c *recordingJobControl) WaitForResult(ctx context.Context, jobID string, timeout time.Duration) (*models.JobResult, error) {
	return nil, fmt.Errorf("not supported")
}

func (c *recordingJobControl) MarkRunning(ctx context.Context, jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = append(c.running, jobID)
}

func (c *recordingJobControl) AppendOutput(ctx context.Context, jobID string, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs = append(c.outputs, line)
}

func (c *recordingJobControl) Complete(ctx context.Context, jobID string, result *models.JobResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed[jobID] = result
}

func (c *recordingJobControl) Fail(ctx context.Context, jobID string, errMsg string) {}

func (c *recordingJobControl) completedResult(jobID string) *models.JobResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed[jobID]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestRunnerPublishesDetectedEvents(t *testing.T) {
	watcher := &scriptedWatcher{
		name:     "github",
		interval: 10 * time.Millisecond,
		check: func(ctx context.Context) ([]interfaces.WatcherEvent, error) {
			return []interfaces.WatcherEvent{
				{Trigger: interfaces.TriggerGithubPush, Data: map[string]interface{}{"sha": "abc"}},
				{Trigger: interfaces.TriggerGithubPR, Data: map[string]interface{}{"number": 1}},
			}, nil
		},
	}
	bus := &recordingBus{}
	jobs := newRecordingJobControl()
	runner := NewRunner(watcher, bus, jobs, arbor.NewLogger())

	if err := runner.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer runner.Stop()

	waitFor(t, time.Second, func() bool { return len(bus.triggers()) >= 2 })

	got := bus.triggers()
	if got[0] != interfaces.TriggerGithubPush || got[1] != interfaces.TriggerGithubPR {
		t.Fatalf("unexpected trigger order: %v", got[:2])
	}
}

func TestRunnerCompletesOnStop(t *testing.T) {
	watcher := &scriptedWatcher{name: "github", interval: 5 * time.Millisecond}
	jobs := newRecordingJobControl()
	runner := NewRunner(watcher, &recordingBus{}, jobs, arbor.NewLogger())

	if err := runner.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool { return watcher.checkCount() >= 2 })
	runner.Stop()

	waitFor(t, time.Second, func() bool { return jobs.completedResult(runner.ID()) != nil })

	result := jobs.completedResult(runner.ID())
	if !result.Success || result.Message != "watcher stopped" {
		t.Fatalf("unexpected terminal result %+v", result)
	}

	// No further checks once stopped
	count := watcher.checkCount()
	time.Sleep(30 * time.Millisecond)
	if watcher.checkCount() != count {
		t.Fatal("watcher must not be checked after stop")
	}
}

func TestRunnerSurvivesCheckFailures(t *testing.T) {
	var calls int
	var mu sync.Mutex
	watcher := &scriptedWatcher{
		name:     "flaky",
		interval: 5 * time.Millisecond,
		check: func(ctx context.Context) ([]interfaces.WatcherEvent, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n%2 == 1 {
				return nil, fmt.Errorf("source unavailable")
			}
			return []interfaces.WatcherEvent{{Trigger: interfaces.TriggerNewAsset}}, nil
		},
	}
	bus := &recordingBus{}
	runner := NewRunner(watcher, bus, newRecordingJobControl(), arbor.NewLogger())

	if err := runner.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer runner.Stop()

	// Failing cycles must not kill the loop; later cycles still publish
	waitFor(t, time.Second, func() bool { return len(bus.triggers()) >= 2 })
}

func TestRunnerType(t *testing.T) {
	watcher := &scriptedWatcher{name: "github", interval: time.Minute}
	runner := NewRunner(watcher, &recordingBus{}, newRecordingJobControl(), arbor.NewLogger())
	if runner.Type() != "watcher:github" {
		t.Fatalf("unexpected type %q", runner.Type())
	}
}

type fakeListener struct {
	mu         sync.Mutex
	registered []string
	started    bool
	stopped    bool
}

func (l *fakeListener) Register(path string, handler http.Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registered = append(l.registered, path)
}

func (l *fakeListener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = true
	return nil
}

func (l *fakeListener) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	return nil
}

func TestManagerRegisterRejectsDuplicates(t *testing.T) {
	m := NewManager(nil, newRecordingJobControl(), &recordingBus{}, nil, arbor.NewLogger())

	if err := m.Register(&scriptedWatcher{name: "github", interval: time.Minute}); err != nil {
		t.Fatal(err)
	}
	if err := m.Register(&scriptedWatcher{name: "github", interval: time.Minute}); err == nil {
		t.Fatal("duplicate registration must fail")
	}

	names := m.Names()
	sort.Strings(names)
	if len(names) != 1 || names[0] != "github" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestManagerStartsOnlyActiveWatchers(t *testing.T) {
	jobs := newRecordingJobControl()
	listener := &fakeListener{}
	m := NewManager([]string{"github", "missing"}, jobs, &recordingBus{}, listener, arbor.NewLogger())

	active := &scriptedWatcher{name: "github", interval: time.Minute}
	inactive := &scriptedWatcher{name: "etherscan", interval: time.Minute}
	for _, w := range []*scriptedWatcher{active, inactive} {
		if err := m.Register(w); err != nil {
			t.Fatal(err)
		}
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop(context.Background())

	jobs.mu.Lock()
	submitted := len(jobs.submitted)
	jobs.mu.Unlock()
	if submitted != 1 {
		t.Fatalf("expected 1 watcher job, got %d", submitted)
	}
	if !listener.started {
		t.Fatal("webhook listener must start after watchers")
	}
}

func TestManagerSkipsFailedInit(t *testing.T) {
	jobs := newRecordingJobControl()
	m := NewManager([]string{"broken", "github"}, jobs, &recordingBus{}, &fakeListener{}, arbor.NewLogger())

	m.Register(&scriptedWatcher{name: "broken", interval: time.Minute, initErr: fmt.Errorf("bad token")})
	m.Register(&scriptedWatcher{name: "github", interval: time.Minute})

	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop(context.Background())

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	if len(jobs.submitted) != 1 {
		t.Fatalf("init failure must not block other watchers, got %d jobs", len(jobs.submitted))
	}
	if jobs.submitted[0].Type() != "watcher:github" {
		t.Fatalf("wrong watcher started: %s", jobs.submitted[0].Type())
	}
}

func TestManagerStopStopsWatchersAndListener(t *testing.T) {
	jobs := newRecordingJobControl()
	listener := &fakeListener{}
	m := NewManager([]string{"github"}, jobs, &recordingBus{}, listener, arbor.NewLogger())
	m.Register(&scriptedWatcher{name: "github", interval: time.Minute})

	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	jobs.mu.Lock()
	stopped := len(jobs.stopped)
	jobs.mu.Unlock()
	if stopped != 1 {
		t.Fatalf("expected 1 stopped job, got %d", stopped)
	}
	if !listener.stopped {
		t.Fatal("webhook listener must stop")
	}
}
