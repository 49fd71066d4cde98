package ai

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrScriptExhausted is returned when a script provider runs out of responses.
var ErrScriptExhausted = errors.New("script provider has no response")

// ScriptProvider replays a fixed sequence of responses. It is the test
// provider: deterministic, offline, and interchangeable with the hosted ones.
type ScriptProvider struct {
	mu        sync.Mutex
	responses []string
	calls     int
	err       error
	delay     time.Duration
}

// NewScriptProvider creates a provider that returns the given responses in
// order. After the script is exhausted, Generate returns ErrScriptExhausted.
func NewScriptProvider(responses ...string) *ScriptProvider {
	return &ScriptProvider{responses: responses}
}

// FailWith makes every subsequent Generate call return err.
func (p *ScriptProvider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// DelayResponses makes Generate wait d before answering, to exercise timeouts.
func (p *ScriptProvider) DelayResponses(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// Calls returns how many times Generate has been invoked.
func (p *ScriptProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *ScriptProvider) Name() string { return "script" }

// Generate returns the next scripted response, honoring ctx cancellation
// during any configured delay.
func (p *ScriptProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	p.mu.Lock()
	p.calls++
	err := p.err
	delay := p.delay
	var resp string
	ok := p.calls <= len(p.responses)
	if ok {
		resp = p.responses[p.calls-1]
	}
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrScriptExhausted
	}
	return resp, nil
}
