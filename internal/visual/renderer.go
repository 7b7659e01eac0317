// Package visual implements the cover image pipeline: a scene director
// that turns a category's theme and selections into an image generation
// prompt, and a renderer that calls out to an OpenAI image model and saves
// the result, grounded on the teacher's DALLEClient.
package visual

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"briefly/internal/core"
	"briefly/internal/logger"
)

// MinImageBytes is the size floor below which a rendered image is treated
// as a broken or truncated generation and rejected in favor of the
// fallback cover, generalizing the teacher's DALLEClient non-200-status
// rejection into a post-hoc sanity check on the written bytes.
const MinImageBytes = 50 * 1024

// wideSize and squareSize are the two sizes the renderer will request,
// preferring wide and falling back to square when wide rendering fails.
const (
	wideSize   = "1792x1024"
	squareSize = "1024x1024"
)

// ImageRenderer turns a SceneDirection into a saved cover image file.
type ImageRenderer struct {
	Client    *DALLEClient
	OutputDir string
	Stats     *core.RunStats
}

func NewImageRenderer(client *DALLEClient, outputDir string, stats *core.RunStats) *ImageRenderer {
	return &ImageRenderer{Client: client, OutputDir: outputDir, Stats: stats}
}

// Render generates and saves a cover image for week/category from
// direction, preferring a wide aspect ratio and falling back to square.
// If image generation is unavailable or every attempt produces an
// undersized file, it returns a CoverImage marked Fallback with no Path;
// no placeholder image is drawn.
func (r *ImageRenderer) Render(ctx context.Context, week string, category core.Category, direction SceneDirection) core.CoverImage {
	if r.Client == nil {
		r.bump(func(s *core.RunStats) { s.FallbackInvocations++ })
		return core.CoverImage{Prompt: direction.Prompt, Style: direction.Style, Fallback: true}
	}

	outputPath := filepath.Join(r.OutputDir, week, fmt.Sprintf("%s_cover.png", category))

	if ok := r.attempt(ctx, direction.Prompt, wideSize, outputPath); ok {
		r.writeDebugSidecar(outputPath, direction, wideSize)
		r.bump(func(s *core.RunStats) { s.LLMSuccesses++ })
		return core.CoverImage{Path: outputPath, Prompt: direction.Prompt, Style: direction.Style}
	}

	logger.Warn("visual: wide render failed or undersized, retrying square", "category", category)
	if ok := r.attempt(ctx, direction.Prompt, squareSize, outputPath); ok {
		r.writeDebugSidecar(outputPath, direction, squareSize)
		r.bump(func(s *core.RunStats) { s.LLMSuccesses++ })
		return core.CoverImage{Path: outputPath, Prompt: direction.Prompt, Style: direction.Style}
	}

	logger.Warn("visual: cover render failed both wide and square, using fallback", "category", category)
	r.bump(func(s *core.RunStats) { s.FallbackInvocations++ })
	return core.CoverImage{Prompt: direction.Prompt, Style: direction.Style, Fallback: true}
}

func (r *ImageRenderer) attempt(ctx context.Context, prompt, size, outputPath string) bool {
	resp, err := r.Client.GenerateImage(ctx, prompt, size, "")
	if err != nil {
		logger.Warn("visual: image generation call failed", "error", err.Error())
		r.bump(func(s *core.RunStats) { s.LLMFailures++ })
		return false
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return false
	}
	if err := r.Client.SaveBase64Image(ctx, resp.Data[0].B64JSON, outputPath); err != nil {
		logger.Warn("visual: failed to save rendered image", "error", err.Error())
		return false
	}
	info, err := os.Stat(outputPath)
	if err != nil || info.Size() < MinImageBytes {
		return false
	}
	return true
}

// debugSidecar records the prompt, model, and output path alongside the
// rendered image, for after-the-fact inspection of what produced a cover.
type debugSidecar struct {
	Prompt            string `json:"prompt"`
	Model             string `json:"model"`
	Style             string `json:"style"`
	BoringnessBreaker string `json:"boringnessBreaker"`
	Size              string `json:"size"`
	OutputPath        string `json:"outputPath"`
}

func (r *ImageRenderer) writeDebugSidecar(outputPath string, direction SceneDirection, size string) {
	sidecarPath := outputPath + ".json"
	data, err := json.MarshalIndent(debugSidecar{
		Prompt:            direction.Prompt,
		Model:             "gpt-image-1",
		Style:             direction.Style,
		BoringnessBreaker: direction.BoringnessBreaker,
		Size:              size,
		OutputPath:        outputPath,
	}, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(sidecarPath, data, 0o644); err != nil {
		logger.Warn("visual: failed to write debug sidecar", "path", sidecarPath, "error", err.Error())
	}
}

func (r *ImageRenderer) bump(f func(*core.RunStats)) {
	if r.Stats != nil {
		f(r.Stats)
	}
}
