package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// --- test stages ---

func sourceStage(items ...Item) Stage {
	return StageFunc(func(ctx context.Context, ec *ExecContext, _ Stream) (StageResult, error) {
		return StageResult{Out: FromItems(items...)}, nil
	})
}

func identityStage() Stage {
	return StageFunc(func(ctx context.Context, ec *ExecContext, in Stream) (StageResult, error) {
		return StageResult{Out: in}, nil
	})
}

// doubleStage multiplies numeric items by two. Items that crossed a token
// round-trip decode as float64.
func doubleStage() Stage {
	return StageFunc(func(ctx context.Context, ec *ExecContext, in Stream) (StageResult, error) {
		out := func(yield func(Item, error) bool) {
			for it, err := range in {
				if err != nil {
					yield(nil, err)
					return
				}
				var doubled Item
				switch n := it.(type) {
				case int:
					doubled = n * 2
				case float64:
					doubled = n * 2
				default:
					yield(nil, fmt.Errorf("not a number: %T", it))
					return
				}
				if !yield(doubled, nil) {
					return
				}
			}
		}
		return StageResult{Out: out}, nil
	})
}

func gateStage(prompt string) Stage {
	return StageFunc(func(ctx context.Context, ec *ExecContext, in Stream) (StageResult, error) {
		items, err := Collect(in)
		if err != nil {
			return StageResult{}, err
		}
		return StageResult{Halt: &Halt{Prompt: prompt, Items: items}}, nil
	})
}

// countingStage passes items through and increments *count when invoked.
func countingStage(count *int) Stage {
	return StageFunc(func(ctx context.Context, ec *ExecContext, in Stream) (StageResult, error) {
		*count++
		return StageResult{Out: in}, nil
	})
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	reg.RegisterStage("src", sourceStage(float64(1), float64(2), float64(3)))
	reg.RegisterStage("identity", identityStage())
	reg.RegisterStage("double", doubleStage())
	reg.Register("gate", func(args map[string]any) (Stage, error) {
		prompt, _ := args["prompt"].(string)
		return gateStage(prompt), nil
	})
	return reg
}

// --- Run ---

func TestRun_NoGate(t *testing.T) {
	eng := NewEngine(testRegistry(t))
	pl := Pipeline{{Name: "src"}, {Name: "double"}}
	res, err := eng.Run(context.Background(), pl, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Halted || res.Cancelled {
		t.Fatalf("expected completed result, got %+v", res)
	}
	want := []Item{float64(2), float64(4), float64(6)}
	assertItems(t, res.Items, want)
}

func TestRun_InitialItems(t *testing.T) {
	eng := NewEngine(testRegistry(t))
	pl := Pipeline{{Name: "double"}}
	res, err := eng.Run(context.Background(), pl, []Item{float64(5), float64(7)}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertItems(t, res.Items, []Item{float64(10), float64(14)})
}

func TestRun_EmptyPipeline(t *testing.T) {
	eng := NewEngine(testRegistry(t))
	res, err := eng.Run(context.Background(), nil, []Item{float64(9)}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertItems(t, res.Items, []Item{float64(9)})
}

func TestRun_UnknownStage(t *testing.T) {
	executed := 0
	reg := testRegistry(t)
	reg.RegisterStage("counted", countingStage(&executed))
	eng := NewEngine(reg)

	pl := Pipeline{{Name: "counted"}, {Name: "nope"}}
	_, err := eng.Run(context.Background(), pl, nil, nil, nil)
	var unknown *UnknownStageError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownStageError, got %v", err)
	}
	if unknown.Name != "nope" {
		t.Errorf("name: got %q", unknown.Name)
	}
	if executed != 0 {
		t.Error("resolution failure must happen before any stage executes")
	}
}

func TestRun_StageError(t *testing.T) {
	reg := testRegistry(t)
	errBoom := errors.New("boom")
	reg.RegisterStage("fail", StageFunc(func(ctx context.Context, ec *ExecContext, in Stream) (StageResult, error) {
		return StageResult{}, errBoom
	}))
	eng := NewEngine(reg)

	pl := Pipeline{{Name: "src"}, {Name: "fail"}, {Name: "double"}}
	_, err := eng.Run(context.Background(), pl, nil, nil, nil)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped stage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "stage 1 (fail)") {
		t.Errorf("error should name the failing stage: %v", err)
	}
}

func TestRun_LazyStageErrorNamesProducer(t *testing.T) {
	reg := testRegistry(t)
	reg.RegisterStage("lazy-fail", StageFunc(func(ctx context.Context, ec *ExecContext, in Stream) (StageResult, error) {
		out := func(yield func(Item, error) bool) {
			if !yield(float64(1), nil) {
				return
			}
			yield(nil, errors.New("mid-stream"))
		}
		return StageResult{Out: out}, nil
	}))
	eng := NewEngine(reg)

	pl := Pipeline{{Name: "lazy-fail"}, {Name: "identity"}}
	_, err := eng.Run(context.Background(), pl, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "stage 0 (lazy-fail)") {
		t.Errorf("lazy error should name its producing stage: %v", err)
	}
}

// --- Halt / Resume ---

func TestRun_GateHalts(t *testing.T) {
	reg := testRegistry(t)
	downstream := 0
	reg.RegisterStage("counted", countingStage(&downstream))
	eng := NewEngine(reg)

	pl := Pipeline{
		{Name: "src"},
		{Name: "gate", Args: map[string]any{"prompt": "ship it?"}},
		{Name: "counted"},
	}
	res, err := eng.Run(context.Background(), pl, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Halted {
		t.Fatal("expected halted result")
	}
	if res.Halt.StageIndex != 1 || res.Halt.ResumeIndex != 2 {
		t.Errorf("indices: got %d/%d, want 1/2", res.Halt.StageIndex, res.Halt.ResumeIndex)
	}
	if res.Halt.Prompt != "ship it?" {
		t.Errorf("prompt: got %q", res.Halt.Prompt)
	}
	assertItems(t, res.Halt.Items, []Item{float64(1), float64(2), float64(3)})
	if res.Token == "" {
		t.Error("halted result must carry a continuation token")
	}
	if downstream != 0 {
		t.Error("stages after the gate must not execute")
	}
}

func TestResume_NotApproved(t *testing.T) {
	eng := NewEngine(testRegistry(t))
	pl := Pipeline{{Name: "src"}, {Name: "gate"}, {Name: "double"}}
	res, err := eng.Run(context.Background(), pl, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ { // rejection is idempotent
		cancelled, err := eng.Resume(context.Background(), res.Token, false, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !cancelled.Cancelled {
			t.Fatal("expected cancelled result")
		}
		if len(cancelled.Items) != 0 {
			t.Errorf("cancelled result must have empty output, got %v", cancelled.Items)
		}
	}
}

func TestResume_Approved(t *testing.T) {
	eng := NewEngine(testRegistry(t))
	pl := Pipeline{{Name: "src"}, {Name: "gate"}, {Name: "double"}}
	halted, err := eng.Run(context.Background(), pl, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	res, err := eng.Resume(context.Background(), halted.Token, true, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Halted {
		t.Fatal("expected completion after resume")
	}
	assertItems(t, res.Items, []Item{float64(2), float64(4), float64(6)})
}

func TestResume_InvalidToken(t *testing.T) {
	eng := NewEngine(testRegistry(t))
	_, err := eng.Resume(context.Background(), "not a token!!", true, nil, nil)
	var invalid *InvalidTokenError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTokenError, got %v", err)
	}
}

func TestResume_ChainedHalts(t *testing.T) {
	eng := NewEngine(testRegistry(t))
	pl := Pipeline{
		{Name: "src"},
		{Name: "gate", Args: map[string]any{"prompt": "first"}},
		{Name: "identity"},
		{Name: "gate", Args: map[string]any{"prompt": "second"}},
		{Name: "double"},
	}

	first, err := eng.Run(context.Background(), pl, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Halted || first.Halt.StageIndex != 1 || first.Halt.ResumeIndex != 2 {
		t.Fatalf("first halt: got %+v", first.Halt)
	}

	second, err := eng.Resume(context.Background(), first.Token, true, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Halted {
		t.Fatal("expected second halt")
	}
	// Indices stay absolute against the original pipeline across chained
	// halts: the second gate sits at position 3.
	if second.Halt.StageIndex != 3 || second.Halt.ResumeIndex != 4 {
		t.Fatalf("second halt indices: got %d/%d, want 3/4", second.Halt.StageIndex, second.Halt.ResumeIndex)
	}
	if second.Halt.Prompt != "second" {
		t.Errorf("prompt: got %q", second.Halt.Prompt)
	}

	final, err := eng.Resume(context.Background(), second.Token, true, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertItems(t, final.Items, []Item{float64(2), float64(4), float64(6)})
}

func TestResume_TokenReplayIsIdempotent(t *testing.T) {
	eng := NewEngine(testRegistry(t))
	pl := Pipeline{{Name: "src"}, {Name: "gate"}, {Name: "double"}}
	halted, err := eng.Run(context.Background(), pl, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	first, err := eng.Resume(context.Background(), halted.Token, true, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := eng.Resume(context.Background(), halted.Token, true, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertItems(t, second.Items, first.Items)
}

// --- Observer ---

type hookObserver struct {
	beforePipeline func(ctx context.Context, runID string, stageCount int, input []Item) error
	afterPipeline  func(ctx context.Context, runID string, result *RunResult, err error) error
	beforeStage    func(ctx context.Context, runID string, index int, name string) error
	afterStage     func(ctx context.Context, runID string, index int, name string, stageErr error, d time.Duration) error
}

func (o *hookObserver) BeforePipeline(ctx context.Context, runID string, stageCount int, input []Item) error {
	if o.beforePipeline != nil {
		return o.beforePipeline(ctx, runID, stageCount, input)
	}
	return nil
}

func (o *hookObserver) AfterPipeline(ctx context.Context, runID string, result *RunResult, err error) error {
	if o.afterPipeline != nil {
		return o.afterPipeline(ctx, runID, result, err)
	}
	return nil
}

func (o *hookObserver) BeforeStage(ctx context.Context, runID string, index int, name string) error {
	if o.beforeStage != nil {
		return o.beforeStage(ctx, runID, index, name)
	}
	return nil
}

func (o *hookObserver) AfterStage(ctx context.Context, runID string, index int, name string, stageErr error, d time.Duration) error {
	if o.afterStage != nil {
		return o.afterStage(ctx, runID, index, name, stageErr, d)
	}
	return nil
}

func TestRun_ObserverHookOrder(t *testing.T) {
	var runIDSeen string
	var order []string
	obs := &hookObserver{
		beforePipeline: func(ctx context.Context, runID string, stageCount int, input []Item) error {
			runIDSeen = runID
			order = append(order, fmt.Sprintf("BeforePipeline:%d", stageCount))
			return nil
		},
		afterPipeline: func(ctx context.Context, runID string, result *RunResult, err error) error {
			order = append(order, "AfterPipeline")
			return nil
		},
		beforeStage: func(ctx context.Context, runID string, index int, name string) error {
			order = append(order, fmt.Sprintf("BeforeStage:%d:%s", index, name))
			return nil
		},
		afterStage: func(ctx context.Context, runID string, index int, name string, stageErr error, d time.Duration) error {
			order = append(order, fmt.Sprintf("AfterStage:%d:%s", index, name))
			return nil
		},
	}

	eng := NewEngine(testRegistry(t))
	pl := Pipeline{{Name: "src"}, {Name: "identity"}}
	if _, err := eng.Run(context.Background(), pl, nil, nil, &RunOptions{Observer: obs}); err != nil {
		t.Fatal(err)
	}
	if runIDSeen == "" {
		t.Error("expected runID to be generated")
	}
	want := []string{
		"BeforePipeline:2",
		"BeforeStage:0:src", "AfterStage:0:src",
		"BeforeStage:1:identity", "AfterStage:1:identity",
		"AfterPipeline",
	}
	if len(order) != len(want) {
		t.Fatalf("order: got %d hooks, want %d: %v", len(order), len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d]: got %q, want %q", i, order[i], want[i])
		}
	}
}

func TestResume_ObserverSeesAbsoluteIndices(t *testing.T) {
	var indices []int
	obs := &hookObserver{
		beforeStage: func(ctx context.Context, runID string, index int, name string) error {
			indices = append(indices, index)
			return nil
		},
	}

	eng := NewEngine(testRegistry(t))
	pl := Pipeline{{Name: "src"}, {Name: "gate"}, {Name: "double"}}
	halted, err := eng.Run(context.Background(), pl, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Resume(context.Background(), halted.Token, true, nil, &RunOptions{Observer: obs, RunID: "r1"}); err != nil {
		t.Fatal(err)
	}
	if len(indices) != 1 || indices[0] != 2 {
		t.Errorf("resumed run should report absolute stage indices, got %v", indices)
	}
}

func TestRun_ObserverRunIDPassedThrough(t *testing.T) {
	var runIDSeen string
	obs := &hookObserver{
		beforePipeline: func(ctx context.Context, runID string, stageCount int, input []Item) error {
			runIDSeen = runID
			return nil
		},
	}
	eng := NewEngine(testRegistry(t))
	pl := Pipeline{{Name: "identity"}}
	if _, err := eng.Run(context.Background(), pl, nil, nil, &RunOptions{Observer: obs, RunID: "my-run-123"}); err != nil {
		t.Fatal(err)
	}
	if runIDSeen != "my-run-123" {
		t.Errorf("runID: got %q, want my-run-123", runIDSeen)
	}
}

func assertItems(t *testing.T, got, want []Item) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("items: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("items[%d]: got %v, want %v", i, got[i], want[i])
		}
	}
}
