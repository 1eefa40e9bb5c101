package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crosswirelabs/loom/pkg/llm"
	"github.com/crosswirelabs/loom/pkg/memory"
	"github.com/crosswirelabs/loom/pkg/msglog"
	"github.com/crosswirelabs/loom/pkg/orchestrator"
	"github.com/crosswirelabs/loom/pkg/prompt"
	"github.com/crosswirelabs/loom/pkg/retrieval"
	"github.com/crosswirelabs/loom/pkg/telemetry"
	"github.com/crosswirelabs/loom/pkg/vector"
)

const (
	// DefaultRecentWindow is the recent-message window size.
	DefaultRecentWindow = 10

	// DefaultCharBudget bounds concatenated recent-message content.
	DefaultCharBudget = 4000

	// DefaultTopK is the retrieval depth.
	DefaultTopK = 5
)

// Options configures the pipeline.
type Options struct {
	// Tenant scopes retrieval and telemetry.
	Tenant string

	// RecentWindow is how many recent messages feed the transcript.
	RecentWindow int

	// CharBudget bounds concatenated recent content; oldest messages are
	// truncated, not dropped, to fit.
	CharBudget int

	// TopK is the retrieval depth.
	TopK int

	// DefaultModel is used when a request names no model.
	DefaultModel string

	// Pricing estimates interaction cost from token counts.
	Pricing telemetry.PricingTable
}

// Pipeline is the conversational request pipeline.
//
// Concurrency model: independent conversations proceed fully in parallel.
// Within one conversation, appends and summary updates serialize on a
// per-conversation lock; memory reads and the embed/retrieve pass for one
// request run concurrently with each other and join before context assembly.
type Pipeline struct {
	log       msglog.Log
	mem       memory.Store
	retriever *retrieval.Engine
	orch      *orchestrator.Orchestrator
	generator llm.Generator
	recorder  *telemetry.Recorder
	opts      Options
	logger    *zap.Logger

	mu        sync.Mutex
	convLocks map[string]*sync.Mutex
}

// NewPipeline creates the chat pipeline.
func NewPipeline(
	log msglog.Log,
	mem memory.Store,
	retriever *retrieval.Engine,
	orch *orchestrator.Orchestrator,
	generator llm.Generator,
	recorder *telemetry.Recorder,
	opts Options,
	logger *zap.Logger,
) *Pipeline {
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = DefaultRecentWindow
	}
	if opts.CharBudget <= 0 {
		opts.CharBudget = DefaultCharBudget
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}

	return &Pipeline{
		log:       log,
		mem:       mem,
		retriever: retriever,
		orch:      orch,
		generator: generator,
		recorder:  recorder,
		opts:      opts,
		logger:    logger,
		convLocks: make(map[string]*sync.Mutex),
	}
}

// convLock returns the ordering lock for one conversation.
func (p *Pipeline) convLock(conversationID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.convLocks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		p.convLocks[conversationID] = l
	}

	return l
}

// Handle runs one chat request through the pipeline.
func (p *Pipeline) Handle(ctx context.Context, req *Request) (*Response, error) {
	started := time.Now()

	// Validate before any side effect.
	if req.Content == "" {
		return nil, ErrEmptyContent
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	model := req.ModelID
	if model == "" {
		model = p.opts.DefaultModel
	}

	lock := p.convLock(conversationID)

	// Losing the user's own message is not acceptable degradation, so an
	// append failure is surfaced, unlike every memory/retrieval read below.
	lock.Lock()
	_, err := p.log.Append(ctx, conversationID, msglog.RoleUser, req.Content)
	lock.Unlock()
	if err != nil {
		return nil, fmt.Errorf("persisting user message: %w", err)
	}

	summary, recent, retrieved := p.gatherContext(ctx, conversationID, req.Content)

	recent = msglog.TruncateOldest(recent, p.opts.CharBudget)
	promptText := prompt.Build(summary, recent, retrieved, req.Content)
	sources := buildSources(retrieved)

	answer, steps, usage, degraded, err := p.answer(ctx, req, promptText, model, sources)
	if err != nil {
		return nil, err
	}

	lock.Lock()
	_, err = p.log.Append(ctx, conversationID, msglog.RoleAssistant, answer)
	lock.Unlock()
	if err != nil {
		return nil, fmt.Errorf("persisting assistant message: %w", err)
	}

	p.refreshSummary(ctx, lock, conversationID, summary, req.Content, answer, model)

	p.recorder.Record(telemetry.InteractionEvent{
		Tenant:    p.opts.Tenant,
		Route:     "chat",
		Model:     model,
		Latency:   time.Since(started),
		TokensIn:  usage.PromptTokens,
		TokensOut: usage.CompletionTokens,
		CostUSD:   p.opts.Pricing.EstimateCost(model, usage.PromptTokens, usage.CompletionTokens),
	})

	return &Response{
		ConversationID: conversationID,
		Content:        answer,
		Steps:          steps,
		Sources:        sources,
		Degraded:       degraded,
	}, nil
}

// gatherContext reads memory and runs retrieval concurrently; both complete
// before context assembly. Every failure on this path degrades to absence.
func (p *Pipeline) gatherContext(ctx context.Context, conversationID, query string) (string, []*msglog.Message, []vector.QueryResult) {
	var (
		summary   string
		recent    []*msglog.Message
		retrieved []vector.QueryResult
	)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()

		text, found, err := p.mem.GetSummary(ctx, conversationID)
		if err != nil {
			p.logger.Warn("summary read failed, treating as absent",
				zap.String("conversation_id", conversationID),
				zap.Error(err),
			)
		} else if found {
			summary = text
		}

		recent, err = p.log.RecentN(ctx, conversationID, p.opts.RecentWindow)
		if err != nil {
			p.logger.Warn("recent window read failed, proceeding without transcript",
				zap.String("conversation_id", conversationID),
				zap.Error(err),
			)
			recent = nil
		}
	}()

	go func() {
		defer wg.Done()

		results, err := p.retriever.Retrieve(ctx, p.opts.Tenant, query, p.opts.TopK)
		if err != nil {
			// Embedding provider down: degrade to zero-context.
			p.logger.Warn("query embedding failed, proceeding ungrounded",
				zap.Error(err),
			)
			return
		}

		retrieved = results
	}()

	wg.Wait()

	return summary, recent, retrieved
}

// answer produces the assistant answer, orchestrated or direct.
func (p *Pipeline) answer(ctx context.Context, req *Request, promptText, model string, sources []orchestrator.Source) (string, []string, llm.Usage, bool, error) {
	if req.useReasoning() {
		result, err := p.orch.Run(ctx, orchestrator.RunInput{
			Query:      req.Content,
			Prompt:     promptText,
			Model:      model,
			Strategies: req.Reasoning.Strategies,
			Params: orchestrator.Params{
				ToTDepth:           req.Reasoning.ToTDepth,
				ConsistencySamples: req.Reasoning.ConsistencySamples,
				ReflectionTurns:    req.Reasoning.ReflectionTurns,
			},
			Sources: sources,
		})
		if err != nil {
			if errors.Is(err, orchestrator.ErrPlannerFailed) {
				return "", nil, llm.Usage{}, false, err
			}
			return "", nil, llm.Usage{}, false, fmt.Errorf("orchestration failed: %w", err)
		}

		// Orchestrated runs span many provider calls; estimate tokens
		// from text length since per-call usage is not aggregated.
		usage := llm.Usage{
			PromptTokens:     estimateTokens(promptText),
			CompletionTokens: estimateTokens(result.Answer),
		}

		return result.Answer, result.Descriptions, usage, result.Degraded, nil
	}

	resp, err := p.generator.Generate(ctx, &llm.GenerateRequest{
		Model:  model,
		Prompt: promptText,
	})
	if err != nil {
		return "", nil, llm.Usage{}, false, fmt.Errorf("generation failed: %w", err)
	}

	usage := llm.Usage{}
	if resp.Usage != nil {
		usage = *resp.Usage
	}

	return resp.Text, nil, usage, false, nil
}

// refreshSummary distills the rolling summary after a successful exchange.
/// Both the distillation and the upsert are best-effort: a stale summary is
// better than a failed request.
func (p *Pipeline) refreshSummary(ctx context.Context, lock *sync.Mutex, conversationID, previous, question, answer, model string) {
	resp, err := p.generator.Generate(ctx, &llm.GenerateRequest{
		Model: model,
		Prompt: fmt.Sprintf(
			"Previous summary:\n%s\n\nLatest exchange:\nuser: %s\nassistant: %s\n\nRewrite the summary of this conversation in under 150 words.",
			previous, question, answer,
		),
	})
	if err != nil {
		p.logger.Warn("summary distillation failed, keeping previous summary",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return
	}

	lock.Lock()
	err = p.mem.UpsertSummary(ctx, conversationID, resp.Text)
	lock.Unlock()
	if err != nil {
		p.logger.Warn("summary upsert failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}
}

// buildSources converts retrieved chunks to rank-ordered citations.
func buildSources(retrieved []vector.QueryResult) []orchestrator.Source {
	sources := make([]orchestrator.Source, 0, len(retrieved))
	for i, chunk := range retrieved {
		title := chunk.Title
		if title == "" {
			title = chunk.DocumentID
		}

		sources = append(sources, orchestrator.Source{
			Rank:  i + 1,
			Title: title,
			URI:   chunk.URI,
		})
	}

	return sources
}

// estimateTokens approximates token counts at four characters per token for
// paths where the provider's own accounting is unavailable.
func estimateTokens(text string) int {
	return len(text) / 4
}
