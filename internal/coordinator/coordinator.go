package coordinator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarlabs/omar/internal/conversation"
	"github.com/omarlabs/omar/internal/feedback"
	"github.com/omarlabs/omar/internal/llm"
	"github.com/omarlabs/omar/internal/observability"
	"github.com/omarlabs/omar/internal/ratelimit"
)

// Config controls coordinator behavior.
type Config struct {
	ContextTurns int
	LLMTimeout   time.Duration
	GreetingTTL  time.Duration
	Provider     string
}

// Coordinator orchestrates a single incoming query: validation, the rate
// gate, bounded history read, the upstream call, and the history write.
type Coordinator struct {
	cfg     Config
	store   conversation.Store
	ledger  feedback.Ledger
	limiter *ratelimit.Limiter
	client  llm.Client
	metrics *observability.Metrics
	log     zerolog.Logger

	greetMu    sync.Mutex
	greetUntil map[string]time.Time
	now        func() time.Time
}

// AskRequest is one inbound operator query.
type AskRequest struct {
	SessionID string
	Question  string
}

// AskResult is a successfully answered query.
type AskResult struct {
	Answer string
	Images []string
}

func New(
	cfg Config,
	store conversation.Store,
	ledger feedback.Ledger,
	limiter *ratelimit.Limiter,
	client llm.Client,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Coordinator {
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = 10
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 30 * time.Second
	}
	return &Coordinator{
		cfg:        cfg,
		store:      store,
		ledger:     ledger,
		limiter:    limiter,
		client:     client,
		metrics:    metrics,
		log:        logger.With().Str("component", "coordinator").Logger(),
		greetUntil: make(map[string]time.Time),
		now:        time.Now,
	}
}

// Ask runs the full query state machine and returns either the answer or a
// typed coordinator error. A failed upstream call never leaves a partial Turn
// in the store.
func (c *Coordinator) Ask(ctx context.Context, req AskRequest) (AskResult, error) {
	return c.ask(ctx, req, nil)
}

// AskStream behaves like Ask but forwards answer fragments to onDelta as they
// arrive, when the configured provider supports streaming.
func (c *Coordinator) AskStream(ctx context.Context, req AskRequest, onDelta llm.DeltaHandler) (AskResult, error) {
	return c.ask(ctx, req, onDelta)
}

func (c *Coordinator) ask(ctx context.Context, req AskRequest, onDelta llm.DeltaHandler) (AskResult, error) {
	started := c.now()

	question := strings.TrimSpace(req.Question)
	sessionID := strings.TrimSpace(req.SessionID)
	if question == "" {
		return AskResult{}, c.fail(sessionID, errInputInvalid("validate", "La pregunta está vacía"))
	}
	if sessionID == "" {
		return AskResult{}, c.fail(sessionID, errInputInvalid("validate", "SessionId requerido"))
	}

	ok, retryAfter := c.limiter.Allow(sessionID)
	if !ok {
		// Rejected before any history is read or written.
		return AskResult{}, c.fail(sessionID, errRateLimited(retryAfter))
	}

	history, err := c.store.History(ctx, sessionID, c.cfg.ContextTurns)
	if err != nil {
		return AskResult{}, c.fail(sessionID, errInternal("history", err))
	}

	prompt := buildPrompt(history, question)

	// Detach from the caller so a client disconnect does not abort the
	// in-flight completion; the timeout still bounds the call.
	opCtx := context.WithoutCancel(ctx)
	llmCtx, cancel := context.WithTimeout(opCtx, c.cfg.LLMTimeout)
	defer cancel()

	completion, err := c.complete(llmCtx, prompt, onDelta)
	if err != nil {
		if c.metrics != nil {
			c.metrics.UpstreamErrors.WithLabelValues(c.cfg.Provider).Inc()
		}
		return AskResult{}, c.fail(sessionID, errUpstream("llm_call", err))
	}

	answer := c.applyGreeting(sessionID, strings.TrimSpace(completion.Text))

	turn := conversation.Turn{
		Question: question,
		Answer:   answer,
		Images:   completion.Images,
	}
	if err := c.store.AppendTurn(opCtx, sessionID, turn); err != nil {
		return AskResult{}, c.fail(sessionID, errInternal("append_turn", err))
	}

	if c.metrics != nil {
		c.metrics.AskRequests.WithLabelValues("answered").Inc()
		c.metrics.ObserveAskLatency(c.now().Sub(started))
	}
	c.log.Debug().Str("session_id", sessionID).Int("context_turns", len(history)).Msg("query answered")

	return AskResult{Answer: answer, Images: completion.Images}, nil
}

func (c *Coordinator) complete(ctx context.Context, prompt llm.Prompt, onDelta llm.DeltaHandler) (llm.Completion, error) {
	if onDelta != nil {
		if streamer, ok := c.client.(llm.Streamer); ok {
			return streamer.StreamComplete(ctx, prompt, onDelta)
		}
	}
	return c.client.Complete(ctx, prompt)
}

// Reset clears the session's conversation history, rate state, and greeting
// deadline. Resetting an unknown or already-empty session succeeds.
func (c *Coordinator) Reset(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errInputInvalid("validate", "SessionId requerido")
	}

	if err := c.store.Reset(ctx, sessionID); err != nil {
		c.log.Error().Err(err).Str("session_id", sessionID).Str("stage", "reset").Msg("internal failure")
		return errInternal("reset", err)
	}
	c.limiter.Forget(sessionID)

	c.greetMu.Lock()
	delete(c.greetUntil, sessionID)
	c.greetMu.Unlock()

	if c.metrics != nil {
		c.metrics.SessionEvents.WithLabelValues("reset").Inc()
	}
	c.log.Info().Str("session_id", sessionID).Msg("session reset")
	return nil
}

// Feedback validates and appends one operator evaluation to the ledger.
func (c *Coordinator) Feedback(ctx context.Context, record feedback.Record) error {
	if strings.TrimSpace(record.SessionID) == "" {
		return errInputInvalid("validate", "SessionId requerido")
	}

	if err := c.ledger.Append(ctx, record); err != nil {
		if errors.Is(err, feedback.ErrMissingSessionID) {
			return errInputInvalid("feedback", "SessionId requerido")
		}
		c.log.Error().Err(err).Str("session_id", record.SessionID).Str("stage", "feedback").Msg("internal failure")
		return errInternal("feedback", err)
	}

	if c.metrics != nil {
		helpful := "false"
		if record.WasHelpful {
			helpful = "true"
		}
		c.metrics.FeedbackEvents.WithLabelValues(helpful).Inc()
	}
	return nil
}

// applyGreeting re-introduces the assistant when the per-session greeting TTL
// has lapsed. First contact arms the TTL without prefixing, since the client
// shows the introduction on its own at session start.
func (c *Coordinator) applyGreeting(sessionID, answer string) string {
	if c.cfg.GreetingTTL <= 0 {
		return answer
	}
	now := c.now().UTC()

	c.greetMu.Lock()
	until, seen := c.greetUntil[sessionID]
	if !seen || !now.After(until) {
		if !seen {
			c.greetUntil[sessionID] = now.Add(c.cfg.GreetingTTL)
		}
		c.greetMu.Unlock()
		return answer
	}
	c.greetUntil[sessionID] = now.Add(c.cfg.GreetingTTL)
	c.greetMu.Unlock()

	if strings.HasPrefix(strings.ToLower(answer), "hola, soy omar") {
		return answer
	}
	return initialGreeting + "\n\n" + answer
}

// StartJanitor periodically prunes idle rate-limit and greeting state.
func (c *Coordinator) StartJanitor(ctx context.Context, interval, idleTTL time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.limiter.Prune(idleTTL)
				c.pruneGreetings(idleTTL)
			}
		}
	}()
}

func (c *Coordinator) pruneGreetings(idleTTL time.Duration) {
	now := c.now().UTC()
	c.greetMu.Lock()
	defer c.greetMu.Unlock()
	for id, until := range c.greetUntil {
		if now.Sub(until) >= idleTTL {
			delete(c.greetUntil, id)
		}
	}
}

// fail records the outcome metric and logs internal failures with enough
// context to diagnose without leaking detail to the caller.
func (c *Coordinator) fail(sessionID string, cerr *Error) *Error {
	if c.metrics != nil {
		c.metrics.AskRequests.WithLabelValues(string(cerr.Kind)).Inc()
	}
	switch cerr.Kind {
	case KindInternalFailure:
		c.log.Error().Err(cerr.Err).Str("session_id", sessionID).Str("stage", cerr.Stage).Msg("internal failure")
	case KindUpstreamFailure:
		c.log.Warn().Err(cerr.Err).Str("session_id", sessionID).Str("stage", cerr.Stage).Msg("upstream failure")
	}
	return cerr
}
