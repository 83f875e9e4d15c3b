package plugin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/types"
)

type recorder struct {
	name string

	mu       sync.Mutex
	created  []uint64
	events   []event.Topic
	failures []string
	inits    int
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnInit(context.Context, any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inits++
	return nil
}

func (r *recorder) OnStreamCreated(_ context.Context, e *event.StreamCreated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, e.StreamID)
	return nil
}

func (r *recorder) OnEvent(_ context.Context, env *event.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, env.Topic)
	return nil
}

func (r *recorder) OnSettlementFailed(_ context.Context, _ uint64, leg string, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, leg)
	return nil
}

type failing struct{}

func (failing) Name() string { return "failing" }

func (failing) OnStreamCreated(context.Context, *event.StreamCreated) error {
	return errors.New("nope")
}

type slow struct{}

func (slow) Name() string { return "slow" }

func (slow) OnEvent(ctx context.Context, _ *event.Envelope) error {
	time.Sleep(200 * time.Millisecond)
	return nil
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }

func (panicky) OnEvent(context.Context, *event.Envelope) error { panic("boom") }

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&recorder{name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&recorder{name: "a"}); err == nil {
		t.Fatal("expected duplicate error")
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d", r.Count())
	}
	if r.Get("a") == nil || r.Get("b") != nil {
		t.Error("Get lookup broken")
	}
	if len(r.List()) != 1 {
		t.Error("List broken")
	}
}

func TestEmitDispatchesByPayload(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{name: "rec"}
	r := NewRegistry()
	_ = r.Register(rec)
	_ = r.Register(failing{})

	r.Emit(ctx, event.New(&event.StreamCreated{StreamID: 7, Amount: types.NewAmount(1)}))
	r.Emit(ctx, event.New(&event.TokensWithdrawn{StreamID: 7}))
	r.EmitInit(ctx, nil)
	r.EmitSettlementFailed(ctx, 7, "vested", errors.New("x"))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.created) != 1 || rec.created[0] != 7 {
		t.Errorf("created = %v", rec.created)
	}
	if len(rec.events) != 2 || rec.events[0] != event.TopicStreamCreated || rec.events[1] != event.TopicTokensWithdrawn {
		t.Errorf("events = %v", rec.events)
	}
	if rec.inits != 1 {
		t.Errorf("inits = %d", rec.inits)
	}
	if len(rec.failures) != 1 || rec.failures[0] != "vested" {
		t.Errorf("failures = %v", rec.failures)
	}
}

func TestCallWithTimeout(t *testing.T) {
	r := NewRegistry().WithTimeout(20 * time.Millisecond)
	_ = r.Register(slow{})

	start := time.Now()
	r.Emit(context.Background(), event.New(&event.EmergencyStopToggled{Enabled: true}))
	if time.Since(start) > 150*time.Millisecond {
		t.Error("slow plugin blocked dispatch past the timeout")
	}
}

func TestPanickingPluginIsContained(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(panicky{})

	err := r.callWithTimeout(context.Background(), "panicky", func() error { panic("boom") })
	if err == nil {
		t.Fatal("expected error from panicking hook")
	}
	r.Emit(context.Background(), event.New(&event.StreamCancelled{StreamID: 1}))
}
