package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"briefly/internal/archive"
	"briefly/internal/cache"
	"briefly/internal/classify"
	"briefly/internal/config"
	"briefly/internal/core"
	"briefly/internal/gate"
	"briefly/internal/llm"
	"briefly/internal/logger"
	"briefly/internal/narrative"
	"briefly/internal/pipeline"
	"briefly/internal/rerank"
	"briefly/internal/summarize"
	"briefly/internal/visual"
)

// newBuildCommand wires the --week, --regenCover, --regenThemes,
// --regenIntro, and --coverStyle flags to a pipeline.Build invocation,
// generalized from the teacher's cmd/handlers/digest_generate.go.
func newBuildCommand() *cobra.Command {
	var (
		week        string
		regenCover  bool
		regenThemes bool
		regenIntro  bool
		coverStyle  string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the weekly digest for a given ISO week",
		RunE: func(cmd *cobra.Command, args []string) error {
			if week == "" {
				return fmt.Errorf("--week is required (e.g. --week=2026-W05)")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			stats := &core.RunStats{}
			ctx := context.Background()

			var geminiClient *llm.Client
			if cfg.AI.Gemini.APIKey != "" && !cfg.Classifier.DryRun {
				geminiClient, err = llm.NewClient(ctx, cfg.AI.Gemini.APIKey)
				if err != nil {
					logger.Warn("build: failed to create Gemini client, running fully in fallback mode", "error", err.Error())
				}
			}

			var dalleClient *visual.DALLEClient
			if cfg.AI.OpenAI.APIKey != "" {
				dalleClient = visual.NewDALLEClient(cfg.AI.OpenAI.APIKey)
			}

			opts := pipeline.Options{
				Week:                  week,
				Location:              cfg.App.Location(),
				SelectionsPerCategory: cfg.Pipeline.SelectionsPerCategory,
				ArticlesPath:          cfg.Pipeline.ArticlesPath,
				WeeksDir:              cfg.Pipeline.WeeksDir,
				CacheDir:              cfg.Cache.Directory,
				OutputDir:             cfg.Output.Directory,
				PolicyAllowlist:       cfg.Pipeline.PolicyAllowlist,
				RegenCover:            regenCover,
				RegenThemes:           regenThemes,
				RegenIntro:            regenIntro,
				CoverStyle:            coverStyle,

				Classifier: classify.New(asClassifyLLM(geminiClient),
					cache.Open(filepath.Join(cfg.Cache.Directory, "classification_cache.json")), stats),
				Reranker: rerank.New(asRerankLLM(geminiClient),
					cache.Open(filepath.Join(cfg.Cache.Directory, "rerank_cache.json")), stats),
				Narrative: narrative.New(asNarrativeLLM(geminiClient),
					themesCache(cfg, regenThemes), introCache(cfg, regenIntro), stats),
				Scene:      visual.NewSceneDirector(asSceneLLM(geminiClient), stats),
				Renderer:   visual.NewImageRenderer(dalleClient, cfg.Output.Directory, stats),
				Summarizer: summarize.New(asSummarizeLLM(geminiClient),
					cache.Open(filepath.Join(cfg.Cache.Directory, "summary_cache.json")), stats),
			}

			digest, err := pipeline.Build(ctx, opts)
			if err != nil {
				return err
			}

			idx, err := archive.Open(filepath.Join(cfg.Cache.Directory, "digests.db"))
			if err == nil {
				defer idx.Close()
				artifactPath := filepath.Join(cfg.Output.Directory, "digests", digest.Week+".json")
				if rerr := idx.Record(digest, artifactPath); rerr != nil {
					logger.Warn("build: failed to update digest archive index", "error", rerr.Error())
				}
			} else {
				logger.Warn("build: failed to open digest archive index", "error", err.Error())
			}

			fmt.Printf("Built digest for %s: %d sections, %d fallback invocations\n",
				digest.Week, len(digest.Sections), digest.RunStats.FallbackInvocations)
			return nil
		},
	}

	cmd.Flags().StringVar(&week, "week", "", "ISO week label, e.g. 2026-W05")
	cmd.Flags().BoolVar(&regenCover, "regenCover", false, "force regeneration of the cover image")
	cmd.Flags().BoolVar(&regenThemes, "regenThemes", false, "force regeneration of category themes")
	cmd.Flags().BoolVar(&regenIntro, "regenIntro", false, "force regeneration of category intros")
	cmd.Flags().StringVar(&coverStyle, "coverStyle", "", "override the cover image style label")

	return cmd
}

func themesCache(cfg *config.Config, regen bool) *cache.File {
	return regenAwareCache(cfg, "themes_cache.json", regen)
}

func introCache(cfg *config.Config, regen bool) *cache.File {
	return regenAwareCache(cfg, "intro_cache.json", regen)
}

// regenAwareCache opens the named cache file unless regen is set, in which
// case a scratch cache file is cleared and opened instead, so every
// theme/intro is regenerated for this run without touching the on-disk
// cache contents other regen-less runs still rely on.
func regenAwareCache(cfg *config.Config, name string, regen bool) *cache.File {
	if regen {
		scratch := filepath.Join(cfg.Cache.Directory, name+".regen-scratch")
		_ = os.Remove(scratch)
		return cache.Open(scratch)
	}
	return cache.Open(filepath.Join(cfg.Cache.Directory, name))
}

func asClassifyLLM(c *llm.Client) classify.LLM {
	if c == nil {
		return nil
	}
	return c
}

func asRerankLLM(c *llm.Client) rerank.LLM {
	if c == nil {
		return nil
	}
	return c
}

func asNarrativeLLM(c *llm.Client) narrative.LLM {
	if c == nil {
		return nil
	}
	return c
}

func asSceneLLM(c *llm.Client) visual.SceneDirectorLLM {
	if c == nil {
		return nil
	}
	return c
}

func asSummarizeLLM(c *llm.Client) summarize.LLM {
	if c == nil {
		return nil
	}
	return c
}
