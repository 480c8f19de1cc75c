package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"webcast/internal/audio"
	"webcast/internal/config"
	"webcast/internal/display"
	"webcast/internal/logging"
	"webcast/internal/process"
	"webcast/internal/publish"
)

func testOrchestrator() *Orchestrator {
	return &Orchestrator{
		logger: logging.NewNop(),
		state:  StateIdle,
	}
}

// fakeSteps builds n stages that record acquisition and release order into
// the shared trace, failing at failAt (or never, when failAt < 0).
func fakeSteps(n, failAt int, trace *[]string) []step {
	states := []State{StateDisplayUp, StateAudioRouted, StateRenderReady, StatePublishing}
	steps := make([]step, 0, n)
	for i := 0; i < n; i++ {
		i := i
		steps = append(steps, step{
			name:  fmt.Sprintf("stage%d", i),
			state: states[i%len(states)],
			acquire: func(context.Context) (func(), error) {
				if i == failAt {
					return nil, errors.New("stage failed")
				}
				*trace = append(*trace, fmt.Sprintf("acquire%d", i))
				return func() { *trace = append(*trace, fmt.Sprintf("release%d", i)) }, nil
			},
		})
	}
	return steps
}

func TestTeardownReversesEveryTruncationPoint(t *testing.T) {
	// Failing at stage k must release exactly stages k-1..0, in that order.
	for failAt := 0; failAt < 4; failAt++ {
		t.Run(fmt.Sprintf("fail_at_%d", failAt), func(t *testing.T) {
			var trace []string
			o := testOrchestrator()

			err := o.acquire(context.Background(), fakeSteps(4, failAt, &trace))
			if err == nil {
				t.Fatal("expected stage failure")
			}
			o.Stop()

			var want []string
			for i := 0; i < failAt; i++ {
				want = append(want, fmt.Sprintf("acquire%d", i))
			}
			for i := failAt - 1; i >= 0; i-- {
				want = append(want, fmt.Sprintf("release%d", i))
			}
			if !reflect.DeepEqual(trace, want) {
				t.Fatalf("trace = %v, want %v", trace, want)
			}
		})
	}
}

func TestFullAcquireReleasesInReverse(t *testing.T) {
	var trace []string
	o := testOrchestrator()

	if err := o.acquire(context.Background(), fakeSteps(4, -1, &trace)); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if got := o.State(); got != StatePublishing {
		t.Fatalf("state = %s, want %s", got, StatePublishing)
	}
	o.Stop()

	want := []string{
		"acquire0", "acquire1", "acquire2", "acquire3",
		"release3", "release2", "release1", "release0",
	}
	if !reflect.DeepEqual(trace, want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	var trace []string
	o := testOrchestrator()

	if err := o.acquire(context.Background(), fakeSteps(2, -1, &trace)); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	o.Stop()
	released := len(trace)
	o.Stop()

	if len(trace) != released {
		t.Fatalf("second Stop released again: %v", trace)
	}
}

func TestStopBeforeAcquireIsSafe(t *testing.T) {
	o := testOrchestrator()
	o.Stop()
	o.Stop()
}

// stubTranscoder satisfies publish.Proc without a real child process.
type stubTranscoder struct {
	done chan struct{}

	mu    sync.Mutex
	state process.ExitState
	code  int
}

func newStubTranscoder() *stubTranscoder {
	return &stubTranscoder{done: make(chan struct{})}
}

func (s *stubTranscoder) Pid() int              { return 4242 }
func (s *stubTranscoder) Done() <-chan struct{} { return s.done }
func (s *stubTranscoder) Diagnostics() string   { return "" }

func (s *stubTranscoder) Exit() (process.ExitState, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.code
}

func (s *stubTranscoder) Terminate(time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == process.ExitUnset {
		s.state = process.ExitedKilled
		s.code = -1
		close(s.done)
	}
}

func TestPublishStepToleratesUnconvergedAudio(t *testing.T) {
	cfg := config.Default()
	cfg.Stream.PageURL = "https://example.com/player"
	cfg.Stream.PublishURL = "rtmp://ingest.example.com/live/key"
	cfg.Capture.OutputWidth = cfg.Capture.RenderWidth
	cfg.Capture.OutputHeight = cfg.Capture.RenderHeight
	cfg.Publish.ConfirmWindow = 0
	cfg.Audio.ConvergeAttempts = 2
	cfg.Audio.ConvergeIntervalMS = 1

	spawned := 0
	o := &Orchestrator{
		cfg:    &cfg,
		logger: logging.NewNop(),
		router: audio.NewRouter(&cfg, logging.NewNop()),
		publisher: publish.NewPublisher(&cfg, logging.NewNop(), publish.WithSpawner(
			func(process.Spec) (publish.Proc, error) {
				spawned++
				return newStubTranscoder(), nil
			},
		)),
		surface: &display.Surface{Display: ":99"},
		route:   &audio.Route{Sink: "webcast_sink", Monitor: "webcast_sink.monitor"},
		state:   StateIdle,
	}

	steps := o.buildSteps()
	last := steps[len(steps)-1]
	if last.name != "publish" {
		t.Fatalf("last stage = %s, want publish", last.name)
	}

	// This router never established a route, so convergence polling runs
	// its full budget and comes back exhausted. The transcoder must start
	// anyway: video is never held hostage to audio.
	release, err := last.acquire(context.Background())
	if err != nil {
		t.Fatalf("publish stage failed on unconverged audio: %v", err)
	}
	if spawned != 1 {
		t.Fatalf("transcoder spawned %d times, want 1", spawned)
	}
	release()
}

func TestAcquireHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var trace []string
	o := testOrchestrator()
	err := o.acquire(ctx, fakeSteps(3, -1, &trace))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(trace) != 0 {
		t.Fatalf("no stage should run under a cancelled context: %v", trace)
	}
}
