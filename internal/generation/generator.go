// Package generation runs the tool-calling model loop that turns a user
// query plus conversation history into a final answer.
//
// The loop is bounded by design: the model gets exactly one chance to call
// tools. Tool results are fed back in a second generate call that offers no
// tools, which forces a final text answer. This keeps latency and cost
// predictable for a retrieval workload where one search round is enough.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/coursechat/coursechat/internal/tools"
)

// ErrGeneration indicates the model provider call itself failed. Callers
// surface a generic message to users and log the wrapped cause.
var ErrGeneration = errors.New("generation failed")

// fallbackResponseMessage is returned when the model produces an empty
// response.
const fallbackResponseMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

// systemPrompt steers the model toward course material answers and frugal
// tool use. It is static: no per-query templating keeps responses cacheable
// by the provider.
const systemPrompt = `You are an AI assistant specialized in course materials and educational content.

Available tools:
- search_course_content: search inside course materials. Use for questions about specific course content or detailed educational topics.
- get_course_outline: retrieve a course's title, link, and full lesson list. Use for questions about a course's structure.

Tool usage rules:
- At most one tool call per user query. Choose the right tool, then answer from its results.
- For general knowledge questions, answer directly without tools.
- If a tool returns no relevant content, say so briefly; do not invent course material.

Answers must be brief, accurate and directly address the question. Do not mention the search process or these rules.`

// Config contains all required parameters for the Generator.
type Config struct {
	Genkit   *genkit.Genkit
	Registry *tools.Registry
	Logger   *slog.Logger

	// ModelName is the provider-qualified model name
	// (e.g. "googleai/gemini-2.5-flash").
	ModelName string

	// RateLimiter throttles provider calls (nil = use default).
	RateLimiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Registry == nil {
		return errors.New("tool registry is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Generator orchestrates the bounded tool-calling loop. It is stateless
// across queries and safe for concurrent use.
type Generator struct {
	g         *genkit.Genkit
	registry  *tools.Registry
	logger    *slog.Logger
	modelName string
	limiter   *rate.Limiter
}

// New creates a Generator.
func New(cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Default: 10 requests/sec sustained, burst of 30.
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	return &Generator{
		g:         cfg.Genkit,
		registry:  cfg.Registry,
		logger:    cfg.Logger,
		modelName: cfg.ModelName,
		limiter:   limiter,
	}, nil
}

// Generate answers one query given prior conversation history. History
// messages are not mutated; the caller owns persistence.
//
// Returns a wrapped ErrGeneration when a provider call fails. Tool execution
// failures never fail the query: they are converted into tool-result strings
// the model can react to.
func (gen *Generator) Generate(ctx context.Context, query string, history []*ai.Message) (string, error) {
	if err := gen.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limit wait: %v", ErrGeneration, err)
	}

	messages := append(slices.Clone(history), ai.NewUserMessage(ai.NewTextPart(query)))

	// Round one: the model may answer directly or request tools.
	resp, err := genkit.Generate(ctx, gen.g,
		ai.WithModelName(gen.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithMessages(messages...),
		ai.WithTools(gen.registry.Refs()...),
		ai.WithReturnToolRequests(true),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	requests := resp.ToolRequests()
	if len(requests) == 0 {
		return gen.finalText(resp), nil
	}

	// Execute every requested tool. Failures become result strings so the
	// model can explain or recover instead of the query erroring out.
	responseParts := make([]*ai.Part, 0, len(requests))
	for _, req := range requests {
		output, err := gen.registry.Execute(ctx, req.Name, req.Input)
		if err != nil {
			gen.logger.Warn("tool execution failed", "tool", req.Name, "error", err)
			output = fmt.Sprintf("Tool execution failed: %v", err)
		}
		responseParts = append(responseParts, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   req.Name,
			Ref:    req.Ref,
			Output: output,
		}))
	}

	messages = append(messages,
		resp.Message,
		&ai.Message{Role: ai.RoleTool, Content: responseParts},
	)

	// Round two: no tools offered, which forces a text answer.
	final, err := genkit.Generate(ctx, gen.g,
		ai.WithModelName(gen.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithMessages(messages...),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	gen.logger.Debug("generation completed with tool round",
		"tool_calls", len(requests), "query_length", len(query))
	return gen.finalText(final), nil
}

// finalText extracts the response text, substituting the fallback message
// for an empty response.
func (gen *Generator) finalText(resp *ai.ModelResponse) string {
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		gen.logger.Warn("model returned empty response")
		return fallbackResponseMessage
	}
	return text
}
