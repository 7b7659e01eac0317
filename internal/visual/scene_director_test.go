package visual

import (
	"context"
	"errors"
	"testing"

	"briefly/internal/core"
)

type fakeSceneLLM struct {
	responses []SceneDirection
	errs      []error
	calls     int
}

func (f *fakeSceneLLM) DirectScene(ctx context.Context, category, theme string, selections []core.Selection, breakers []string) (SceneDirection, error) {
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return f.responses[i], err
}

func TestDirectAcceptsQualifyingFirstAttempt(t *testing.T) {
	llm := &fakeSceneLLM{responses: []SceneDirection{
		{Prompt: "a scene", BoringnessBreaker: "dutch angle", Confidence: 0.8},
	}}
	d := NewSceneDirector(llm, &core.RunStats{})

	got := d.Direct(context.Background(), core.AIAndStrategy, "theme", nil)
	if got.Prompt != "a scene" || llm.calls != 1 {
		t.Fatalf("got %+v, calls=%d", got, llm.calls)
	}
}

func TestDirectRetriesOnLowConfidenceThenAccepts(t *testing.T) {
	llm := &fakeSceneLLM{responses: []SceneDirection{
		{Prompt: "meh", BoringnessBreaker: "overhead flat lay", Confidence: 0.2},
		{Prompt: "better", BoringnessBreaker: "motion blur implying speed", Confidence: 0.9},
	}}
	d := NewSceneDirector(llm, &core.RunStats{})

	got := d.Direct(context.Background(), core.AIAndStrategy, "theme", nil)
	if got.Prompt != "better" || llm.calls != 2 {
		t.Fatalf("got %+v, calls=%d", got, llm.calls)
	}
}

func TestDirectFallsBackToGenericAfterTwoFailures(t *testing.T) {
	llm := &fakeSceneLLM{
		responses: []SceneDirection{{}, {}},
		errs:      []error{errors.New("down"), errors.New("down")},
	}
	d := NewSceneDirector(llm, &core.RunStats{})

	got := d.Direct(context.Background(), core.EcommerceRetailTech, "theme", nil)
	if got.BoringnessBreaker == "" || got.Confidence < MinSceneConfidence {
		t.Fatalf("expected a qualifying generic fallback direction, got %+v", got)
	}
}

func TestDirectNoLLMUsesGeneric(t *testing.T) {
	d := NewSceneDirector(nil, &core.RunStats{})
	got := d.Direct(context.Background(), core.LuxuryAndConsumer, "theme", nil)
	if got.Prompt == "" {
		t.Fatalf("expected non-empty generic prompt, got %+v", got)
	}
}
