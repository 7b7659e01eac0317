// Package llm wraps the Gemini client used by every LLM-backed pipeline
// component (classifier, reranker, narrative generator, scene director,
// summarizer)
// behind one structured-output call, grounded on the teacher's
// llm.Client: a single google.golang.org/genai client, JSON response
// schemas instead of free text, and temperature tuned per call site.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"briefly/internal/core"
	"briefly/internal/rerank"
	"briefly/internal/visual"
)

// Client wraps a *genai.Client with the model names each pipeline stage
// uses, matching the teacher's per-call model-name override convention.
type Client struct {
	genai *genai.Client

	ClassifierModel    string
	RerankModel        string
	ThemeModel         string
	IntroModel         string
	SceneDirectorModel string
	SummaryModel       string

	Timeout time.Duration
}

// NewClient constructs a Client from an API key. The key is looked up from
// the first of GEMINI_API_KEY, GOOGLE_GEMINI_API_KEY, GOOGLE_AI_API_KEY
// when apiKey is empty, mirroring the teacher's multi-alias key lookup in
// llm.NewClient.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY"} {
			if v := os.Getenv(env); v != "" {
				apiKey = v
				break
			}
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("llm: no Gemini API key configured")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: creating genai client: %w", err)
	}

	return &Client{
		genai:              gc,
		ClassifierModel:    envOr("CLASSIFIER_MODEL", "gemini-2.0-flash"),
		RerankModel:        envOr("RERANK_MODEL", "gemini-2.0-flash"),
		ThemeModel:         envOr("THEME_MODEL", "gemini-2.0-flash"),
		IntroModel:         envOr("INTRO_MODEL", "gemini-2.0-flash"),
		SceneDirectorModel: envOr("SCENE_DIRECTOR_MODEL", "gemini-2.0-flash"),
		SummaryModel:       envOr("SUMMARY_MODEL", "gemini-2.0-flash-lite"),
		Timeout:            30 * time.Second,
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// generateJSON issues a structured-output request against schema and
// unmarshals the response into out.
func (c *Client) generateJSON(ctx context.Context, model, prompt string, temperature float32, schema *genai.Schema, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	result, err := c.genai.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return fmt.Errorf("llm: generate content: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	text = stripJSONFence(text)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("llm: parsing structured response: %w", err)
	}
	return nil
}

// stripJSONFence defensively removes a ```json ... ``` fence if the model
// wraps its output despite the requested MIME type, mirroring the
// teacher's parseClassificationResponse markdown-fence stripping.
func stripJSONFence(text string) string {
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// --- classify.LLM ---

type categorizeResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

var categorizeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"category": {
			Type: genai.TypeString,
			Enum: []string{
				string(core.AIAndStrategy), string(core.EcommerceRetailTech),
				string(core.LuxuryAndConsumer), string(core.JewelleryIndustry),
			},
		},
		"confidence": {Type: genai.TypeNumber},
	},
	Required: []string{"category", "confidence"},
}

func (c *Client) ClassifyArticle(ctx context.Context, title, excerpt, source, categoryHint string) (string, float64, error) {
	hintLine := ""
	if categoryHint != "" {
		hintLine = fmt.Sprintf("\nUpstream category hint (advisory, not authoritative): %s\n", categoryHint)
	}

	prompt := fmt.Sprintf(`Classify this article into exactly one category.

Title: %s
Source: %s
Excerpt: %s
%s
Categories:
- ai_strategy: AI, machine learning, and corporate strategy around them
- ecommerce_retail_tech: ecommerce platforms, retail technology, supply chain
- luxury_consumer: luxury brands, consumer spending and behavior
- jewellery_industry: jewellery, diamonds, gemstones, precious metals

Respond with the category and your confidence from 0 to 1.`, title, source, excerpt, hintLine)

	var resp categorizeResponse
	if err := c.generateJSON(ctx, c.ClassifierModel, prompt, 0, categorizeSchema, &resp); err != nil {
		return "", 0, err
	}
	return resp.Category, resp.Confidence, nil
}

// --- rerank.LLM ---

type rerankResponse struct {
	Items []rerank.RankedItem `json:"items"`
}

var rerankSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"items": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"url":        {Type: genai.TypeString},
					"rank":       {Type: genai.TypeInteger},
					"why":        {Type: genai.TypeString},
					"confidence": {Type: genai.TypeNumber},
				},
				Required: []string{"url", "rank", "why", "confidence"},
			},
		},
	},
	Required: []string{"items"},
}

func (c *Client) RerankArticles(ctx context.Context, category string, candidates []core.Article, limit int) ([]rerank.RankedItem, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Rank the top %d most newsworthy articles for the %q digest section.\n\n", limit, category)
	for _, a := range candidates {
		fmt.Fprintf(&b, "URL: %s\nTitle: %s\nSource: %s\n\n", a.URL, a.Title, a.Source)
	}
	b.WriteString("Return exactly that many items, each with a one-sentence reason and your confidence from 0 to 1. Ranks must be sequential starting at 1 with no repeats, and each URL must appear at most once.")

	var resp rerankResponse
	if err := c.generateJSON(ctx, c.RerankModel, b.String(), 0.2, rerankSchema, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// --- narrative.LLM ---

type themeResponse struct {
	Theme string `json:"theme"`
}

var themeSchema = &genai.Schema{
	Type:       genai.TypeObject,
	Properties: map[string]*genai.Schema{"theme": {Type: genai.TypeString}},
	Required:   []string{"theme"},
}

func (c *Client) GenerateTheme(ctx context.Context, category string, selections []core.Selection, reminder string) (string, error) {
	prompt := fmt.Sprintf("Write a theme label of 6 words or fewer summarizing this week's %q stories.\n\n%s\n\n%s",
		category, titlesBlock(selections), reminder)

	var resp themeResponse
	if err := c.generateJSON(ctx, c.ThemeModel, prompt, 0.4, themeSchema, &resp); err != nil {
		return "", err
	}
	return resp.Theme, nil
}

type introResponse struct {
	Intro string `json:"intro"`
}

var introSchema = &genai.Schema{
	Type:       genai.TypeObject,
	Properties: map[string]*genai.Schema{"intro": {Type: genai.TypeString}},
	Required:   []string{"intro"},
}

func (c *Client) GenerateIntro(ctx context.Context, category string, theme string, selections []core.Selection, reminder string) (string, error) {
	prompt := fmt.Sprintf("Write a short intro paragraph (under 80 words, at most 3 sentences) for the %q digest section, themed %q.\n\n%s\n\n%s",
		category, theme, titlesBlock(selections), reminder)

	var resp introResponse
	if err := c.generateJSON(ctx, c.IntroModel, prompt, 0.5, introSchema, &resp); err != nil {
		return "", err
	}
	return resp.Intro, nil
}

func titlesBlock(selections []core.Selection) string {
	var b strings.Builder
	for _, s := range selections {
		fmt.Fprintf(&b, "- %s\n", s.Article.Title)
	}
	return b.String()
}

// --- visual.SceneDirectorLLM ---

var sceneSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"prompt":            {Type: genai.TypeString},
		"style":             {Type: genai.TypeString},
		"boringnessBreaker": {Type: genai.TypeString},
		"confidence":        {Type: genai.TypeNumber},
	},
	Required: []string{"prompt", "style", "boringnessBreaker", "confidence"},
}

func (c *Client) DirectScene(ctx context.Context, category, theme string, selections []core.Selection, breakers []string) (visual.SceneDirection, error) {
	prompt := fmt.Sprintf(`Design a cover image for the %q digest section, themed %q.

Pick exactly one technique from this list to keep the image from looking generic:
%s

Stories this section covers:
%s

Return a detailed image generation prompt, a style label, the chosen technique, and your confidence from 0 to 1.`,
		category, theme, strings.Join(breakers, "\n- "), titlesBlock(selections))

	var resp visual.SceneDirection
	if err := c.generateJSON(ctx, c.SceneDirectorModel, prompt, 0.6, sceneSchema, &resp); err != nil {
		return visual.SceneDirection{}, err
	}
	return resp, nil
}

// --- summarize.LLM ---

type summaryResponse struct {
	Summary string `json:"summary"`
}

var summarySchema = &genai.Schema{
	Type:       genai.TypeObject,
	Properties: map[string]*genai.Schema{"summary": {Type: genai.TypeString}},
	Required:   []string{"summary"},
}

func (c *Client) SummarizeArticle(ctx context.Context, category string, article core.Article) (string, error) {
	prompt := fmt.Sprintf("Summarize this article in one or two sentences for a %q digest reader.\n\nTitle: %s\nExcerpt: %s\nBody: %.4000s",
		category, article.Title, article.Excerpt, article.Body)

	var resp summaryResponse
	if err := c.generateJSON(ctx, c.SummaryModel, prompt, 0.2, summarySchema, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}
