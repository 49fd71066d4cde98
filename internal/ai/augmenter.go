package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/config"
	"github.com/hyperjump/osusume/internal/models"
)

const rerankSystemPrompt = "You rerank product recommendations for a shopper. " +
	"Reply with only a JSON array of product ids, best match first. " +
	"Use only ids from the candidate list; never invent ids."

const profileSystemPrompt = "You are a user profiling expert. From the given " +
	"preferences and context, write a short shopping profile (interests, style, " +
	"budget) usable as a search query. Reply with the profile text only."

const explainSystemPrompt = "Explain briefly and helpfully why these products " +
	"were recommended for the user. Two sentences at most."

// Augmenter reorders and annotates recommendation results via a text
// generation provider. Every failure mode (timeout, transport error, open
// breaker, unparseable or invalid reply) degrades to the unmodified base
// result; callers never see an error.
type Augmenter struct {
	provider Provider
	cache    *Cache
	breaker  *gobreaker.CircuitBreaker[string]
	timeout  time.Duration
	logger   *zap.Logger
}

// AugmenterOption configures an Augmenter.
type AugmenterOption func(*Augmenter)

// WithCache attaches a response cache.
func WithCache(c *Cache) AugmenterOption {
	return func(a *Augmenter) { a.cache = c }
}

// WithAugmenterLogger sets a logger for absorbed provider failures.
func WithAugmenterLogger(l *zap.Logger) AugmenterOption {
	return func(a *Augmenter) { a.logger = l }
}

// NewAugmenter creates an augmenter around provider. Provider calls are
// bounded by cfg's timeout and wrapped in a circuit breaker so a dead provider
// fails fast instead of stalling every request.
func NewAugmenter(provider Provider, cfg config.AIConfig, opts ...AugmenterOption) *Augmenter {
	a := &Augmenter{
		provider: provider,
		timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	threshold := cfg.Breaker.FailureThreshold
	a.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "ai-provider",
		Timeout: time.Duration(cfg.Breaker.ResetTimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BreakerState reports the provider circuit breaker state for status output.
func (a *Augmenter) BreakerState() string {
	return a.breaker.State().String()
}

// Rerank asks the provider to reorder recs and adopts the reply only when it
// is a valid permutation or subset of the candidate ids. A subset becomes a
// prefix, with unlisted candidates appended in base order, so the member set
// and length never change. On any failure the base order is returned.
func (a *Augmenter) Rerank(ctx context.Context, recs []models.Recommendation, profile string) []models.Recommendation {
	if len(recs) < 2 {
		return recs
	}
	var b strings.Builder
	b.WriteString("Candidates:\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "- id: %s | name: %s", r.ID, r.Name)
		if r.Category != "" {
			fmt.Fprintf(&b, " | category: %s", r.Category)
		}
		b.WriteString("\n")
	}
	if profile != "" {
		b.WriteString("\nShopper profile: ")
		b.WriteString(profile)
		b.WriteString("\n")
	}

	reply, err := a.generate(ctx, rerankSystemPrompt, b.String())
	if err != nil {
		a.logFailure("rerank", err)
		return recs
	}
	ids, err := parseIDList(reply)
	if err != nil {
		a.logFailure("rerank", err)
		return recs
	}
	reordered, ok := applyOrder(recs, ids)
	if !ok {
		a.logFailure("rerank", fmt.Errorf("reply is not a permutation/subset of candidates"))
		return recs
	}
	return reordered
}

// Profile turns free-text preferences and context into a shopping profile used
// to enrich the query document. Returns "" when there is nothing to profile or
// the provider fails.
func (a *Augmenter) Profile(ctx context.Context, preferences, contextText string) string {
	if preferences == "" && contextText == "" {
		return ""
	}
	prompt := fmt.Sprintf("User preferences: %s\nContext: %s",
		orNone(preferences), orNone(contextText))
	profile, err := a.generate(ctx, profileSystemPrompt, prompt)
	if err != nil {
		a.logFailure("profile", err)
		return ""
	}
	return strings.TrimSpace(profile)
}

// Explain generates a short explanation for the top results. Returns "" on
// any failure.
func (a *Augmenter) Explain(ctx context.Context, recs []models.Recommendation, preferences string) string {
	if len(recs) == 0 {
		return ""
	}
	top := recs
	if len(top) > 3 {
		top = top[:3]
	}
	var b strings.Builder
	for _, r := range top {
		fmt.Fprintf(&b, "- %s", r.Name)
		if r.Category != "" {
			fmt.Fprintf(&b, " (%s)", r.Category)
		}
		b.WriteString("\n")
	}
	if preferences != "" {
		fmt.Fprintf(&b, "\nUser preferences: %s\n", preferences)
	}
	explanation, err := a.generate(ctx, explainSystemPrompt, b.String())
	if err != nil {
		a.logFailure("explain", err)
		return ""
	}
	return strings.TrimSpace(explanation)
}

// generate runs one provider call through cache, breaker, and timeout.
func (a *Augmenter) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if a.cache != nil {
		if cached, ok := a.cache.Get(ctx, systemPrompt, userPrompt); ok {
			return cached, nil
		}
	}
	reply, err := a.breaker.Execute(func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		return a.provider.Generate(callCtx, systemPrompt, userPrompt)
	})
	if err != nil {
		return "", err
	}
	if a.cache != nil {
		if err := a.cache.Put(ctx, systemPrompt, userPrompt, reply); err != nil {
			a.logFailure("cache put", err)
		}
	}
	return reply, nil
}

func (a *Augmenter) logFailure(op string, err error) {
	if a.logger != nil {
		a.logger.Warn("AI augmentation degraded to base result",
			zap.String("op", op),
			zap.String("provider", a.provider.Name()),
			zap.Error(err),
		)
	}
}

// parseIDList extracts a JSON array of product ids from a provider reply,
// tolerating surrounding prose and code fences. Numeric ids are stringified.
func parseIDList(reply string) ([]string, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in reply")
	}
	var raw []interface{}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty id list")
	}
	ids := make([]string, len(raw))
	for i, v := range raw {
		switch t := v.(type) {
		case string:
			ids[i] = t
		case float64:
			ids[i] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			return nil, fmt.Errorf("id at %d is not a string", i)
		}
	}
	return ids, nil
}

// applyOrder reorders recs by ids. Every id must exist in recs and appear at
// most once; otherwise ok is false. Candidates missing from ids keep their
// relative base order after the listed ones.
func applyOrder(recs []models.Recommendation, ids []string) ([]models.Recommendation, bool) {
	byID := make(map[string]int, len(recs))
	for i, r := range recs {
		byID[r.ID] = i
	}
	seen := make(map[string]bool, len(ids))
	out := make([]models.Recommendation, 0, len(recs))
	for _, id := range ids {
		idx, ok := byID[id]
		if !ok || seen[id] {
			return nil, false
		}
		seen[id] = true
		out = append(out, recs[idx])
	}
	for _, r := range recs {
		if !seen[r.ID] {
			out = append(out, r)
		}
	}
	return out, true
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
