package visual

import (
	"context"

	"briefly/internal/core"
	"briefly/internal/logger"
)

// boringnessBreakers is the catalogue of photographic techniques the scene
// director is asked to choose from to avoid a generic, templated cover
// image — an unusual angle, strong side lighting, motion blur, and so on.
var boringnessBreakers = []string{
	"dutch angle", "extreme close-up", "long shadow at golden hour",
	"shallow depth of field with bokeh", "overhead flat lay",
	"silhouette against bright background", "motion blur implying speed",
	"reflection in glass or water", "deliberate asymmetric framing",
}

// SceneDirection is the scene director's structured output: an image
// generation prompt plus the chosen boringness-breaker technique and the
// model's self-reported confidence.
type SceneDirection struct {
	Prompt            string  `json:"prompt"`
	Style             string  `json:"style"`
	BoringnessBreaker string  `json:"boringnessBreaker"`
	Confidence        float64 `json:"confidence"`
}

// MinSceneConfidence is the guardrail below which the scene director's
// output is discarded in favor of the generic template prompt.
const MinSceneConfidence = 0.55

// SceneDirectorLLM is the subset of the Gemini client the scene director
// needs.
type SceneDirectorLLM interface {
	DirectScene(ctx context.Context, category string, theme string, selections []core.Selection, breakers []string) (SceneDirection, error)
}

// SceneDirector turns a category section into an image generation prompt.
type SceneDirector struct {
	LLM   SceneDirectorLLM
	Stats *core.RunStats
}

func NewSceneDirector(llm SceneDirectorLLM, stats *core.RunStats) *SceneDirector {
	return &SceneDirector{LLM: llm, Stats: stats}
}

// Direct returns a SceneDirection for category. On LLM failure, an empty
// chosen technique, or confidence below MinSceneConfidence, one retry is
// attempted; if that also fails to qualify, a generic template direction
// is returned so the cover pipeline is never blocked.
func (d *SceneDirector) Direct(ctx context.Context, category core.Category, theme string, selections []core.Selection) SceneDirection {
	if d.LLM == nil {
		d.bump(func(s *core.RunStats) { s.FallbackInvocations++ })
		return genericDirection(category, theme)
	}

	direction, err := d.LLM.DirectScene(ctx, string(category), theme, selections, boringnessBreakers)
	if qualifies(direction, err) {
		d.bump(func(s *core.RunStats) { s.LLMSuccesses++ })
		return direction
	}

	if err != nil {
		logger.Warn("visual: scene director call failed, retrying", "category", category, "error", err.Error())
	} else {
		logger.Debug("visual: scene director output empty or low confidence, retrying", "category", category, "confidence", direction.Confidence)
	}

	retried, rerr := d.LLM.DirectScene(ctx, string(category), theme, selections, boringnessBreakers)
	if qualifies(retried, rerr) {
		d.bump(func(s *core.RunStats) { s.LLMSuccesses++ })
		return retried
	}

	d.bump(func(s *core.RunStats) { s.FallbackInvocations++ })
	return genericDirection(category, theme)
}

func qualifies(d SceneDirection, err error) bool {
	return err == nil && d.Prompt != "" && d.BoringnessBreaker != "" && d.Confidence >= MinSceneConfidence
}

func genericDirection(category core.Category, theme string) SceneDirection {
	return SceneDirection{
		Prompt:            "A clean, editorial photograph representing " + category.DisplayName() + ": " + theme,
		Style:             "editorial",
		BoringnessBreaker: "shallow depth of field with bokeh",
		Confidence:        MinSceneConfidence,
	}
}

func (d *SceneDirector) bump(f func(*core.RunStats)) {
	if d.Stats != nil {
		f(d.Stats)
	}
}
