package service

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	planSchema   = "schemas/plan.schema.json"
	slidesSchema = "schemas/slides.schema.json"
)

// ChatCompleter sends a system and a user prompt and returns the model's text answer.
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAIChat is a ChatCompleter backed by the OpenAI chat completions API.
type OpenAIChat struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
}

// NewOpenAIChat builds a chat client. baseURL may be empty for the public API.
func NewOpenAIChat(apiKey, baseURL, model string) *OpenAIChat {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIChat{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: 0.7,
		maxTokens:   1500,
	}
}

func (c *OpenAIChat) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	})
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAIGenerator asks a chat model for JSON and checks it against embedded schemas.
type OpenAIGenerator struct {
	chat ChatCompleter

	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

func NewOpenAIGenerator(chat ChatCompleter) *OpenAIGenerator {
	if chat == nil {
		panic("chat completer is required")
	}
	return &OpenAIGenerator{chat: chat, schemas: make(map[string]*jsonschema.Schema)}
}

func (g *OpenAIGenerator) Name() string { return "openai" }

const systemPrompt = `You plan content for digital signage screens in small businesses.
Answer with a single JSON object only, no prose and no markdown.`

func (g *OpenAIGenerator) GeneratePlan(ctx context.Context, bc BusinessContext) ([]PlannedPlaylist, error) {
	user := fmt.Sprintf(`Business: %s
Type: %s
Audience: %s
Tone: %s

Propose 2 to 5 playlists as {"playlists":[{"key":"kebab-case-id","name":"...","description":"...","themes":["..."],"slideCount":N}]}.`,
		bc.BusinessName, bc.BusinessType, orDefault(bc.Audience, "general public"), orDefault(bc.Tone, "friendly"))

	var out struct {
		Playlists []PlannedPlaylist `json:"playlists"`
	}
	if err := g.ask(ctx, user, planSchema, &out); err != nil {
		return nil, err
	}
	return out.Playlists, nil
}

func (g *OpenAIGenerator) GenerateSlides(ctx context.Context, bc BusinessContext, p PlannedPlaylist) ([]Slide, error) {
	user := fmt.Sprintf(`Business: %s (%s), tone %s.
Write %d slides for the playlist %q: %s. Themes: %s.
Answer as {"slides":[{"title":"...","body":"...","durationSeconds":N}]}.`,
		bc.BusinessName, bc.BusinessType, orDefault(bc.Tone, "friendly"),
		max(p.SlideCount, 1), p.Name, p.Description, strings.Join(p.Themes, ", "))

	var out struct {
		Slides []Slide `json:"slides"`
	}
	if err := g.ask(ctx, user, slidesSchema, &out); err != nil {
		return nil, err
	}
	return out.Slides, nil
}

func (g *OpenAIGenerator) ask(ctx context.Context, user, schema string, dst any) error {
	answer, err := g.chat.Complete(ctx, systemPrompt, user)
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	payload := []byte(stripFences(answer))

	compiled, err := g.schema(schema)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("completion does not match %s: %w", schema, err)
	}
	return json.Unmarshal(payload, dst)
}

func (g *OpenAIGenerator) schema(name string) (*jsonschema.Schema, error) {
	g.mu.RLock()
	s, ok := g.schemas[name]
	g.mu.RUnlock()
	if ok {
		return s, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok = g.schemas[name]; ok {
		return s, nil
	}
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("register schema %s: %w", name, err)
	}
	s, err = compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	g.schemas[name] = s
	return s, nil
}

// stripFences removes a surrounding ```json block some models add despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

var (
	_ Generator     = (*OpenAIGenerator)(nil)
	_ ChatCompleter = (*OpenAIChat)(nil)
)
