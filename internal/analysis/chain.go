package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultSampleSize  = 100
	DefaultCallTimeout = 60 * time.Second
)

type Options struct {
	SampleSize  int
	CallTimeout time.Duration
}

// Chain tries providers strictly in order and returns the first
// structurally valid analysis. It is built once at startup and is safe for
// concurrent use as long as the providers are.
type Chain struct {
	providers []Provider
	opts      Options
	log       *zap.Logger
	now       func() time.Time
}

func NewChain(opts Options, providers ...Provider) *Chain {
	if opts.SampleSize <= 0 {
		opts.SampleSize = DefaultSampleSize
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &Chain{
		providers: providers,
		opts:      opts,
		log:       zap.L().Named("analysis"),
		now:       time.Now,
	}
}

// Available lists the providers that have credentials configured.
func (c *Chain) Available() []string {
	var names []string
	for _, p := range c.providers {
		if p.Available() {
			names = append(names, p.Name())
		}
	}
	return names
}

// Analyze runs the chain over texts. Blank items are ignored and at most
// SampleSize items are sent. It never returns nil.
func (c *Chain) Analyze(ctx context.Context, texts []string) *Outcome {
	start := c.now()

	items := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			items = append(items, t)
		}
	}
	total := len(items)
	if len(items) > c.opts.SampleSize {
		items = items[:c.opts.SampleSize]
	}

	if len(items) == 0 {
		return emptyOutcome()
	}

	prompt := BuildPrompt(items)
	var attempts []Attempt

	for _, p := range c.providers {
		if !p.Available() {
			attempts = append(attempts, Attempt{
				Provider: p.Name(),
				Kind:     Unavailable.String(),
				Error:    ErrProviderUnavailable.Error(),
			})
			continue
		}

		for i, model := range p.Models() {
			parsed, attempt := c.call(ctx, p, model, prompt)
			attempts = append(attempts, attempt)

			if parsed != nil {
				c.log.Info("analysis succeeded",
					zap.String("provider", p.Name()),
					zap.String("model", model),
					zap.Int("themes", len(parsed.Themes)),
					zap.Int("attempts", len(attempts)))

				return &Outcome{
					Themes:           parsed.Themes,
					AgileRisks:       parsed.AgileRisks,
					ExecutiveSummary: parsed.ExecutiveSummary,
					ConfidenceScore:  meanConfidence(parsed.Themes),
					ProcessingTime:   c.now().Sub(start),
					ModelUsed:        p.Name() + "/" + model,
					FeedbackCount:    total,
					FeedbackAnalyzed: len(items),
					Attempts:         attempts,
				}
			}

			// Only the primary model gets a same-provider retry, and only
			// for transient failures.
			if i > 0 || attempt.Kind != Transient.String() {
				break
			}
			if ctx.Err() != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	out := FailedOutcome(diagnose(attempts))
	out.ProcessingTime = c.now().Sub(start)
	out.FeedbackCount = total
	out.FeedbackAnalyzed = len(items)
	out.Attempts = attempts

	c.log.Warn("all analysis providers failed", zap.String("diagnostic", out.Error))
	return out
}

func (c *Chain) call(ctx context.Context, p Provider, model string, prompt Prompt) (*parsedAnalysis, Attempt) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	started := c.now()
	attempt := Attempt{Provider: p.Name(), Model: model}

	text, err := p.Generate(callCtx, model, prompt)
	if err == nil {
		var parsed *parsedAnalysis
		parsed, err = parseAnalysis(text)
		if err == nil {
			attempt.Duration = c.now().Sub(started)
			return parsed, attempt
		}
		err = NewProviderError(p.Name(), model, Hard, err)
	}
	if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		err = NewProviderError(p.Name(), model, Transient, fmt.Errorf("call timed out after %s: %w", c.opts.CallTimeout, err))
	}

	kind := KindOf(err)
	attempt.Kind = kind.String()
	attempt.Error = err.Error()
	attempt.Duration = c.now().Sub(started)

	c.log.Warn("analysis provider call failed",
		zap.String("provider", p.Name()),
		zap.String("model", model),
		zap.Stringer("kind", kind),
		zap.Error(err))
	return nil, attempt
}

// diagnose names every provider/model that was tried and why it failed.
func diagnose(attempts []Attempt) string {
	if len(attempts) == 0 {
		return "no analysis provider is configured"
	}

	called, transient := 0, 0
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		name := a.Provider
		if a.Model != "" {
			name += "/" + a.Model
		}
		parts = append(parts, fmt.Sprintf("%s (%s): %s", name, a.Kind, a.Error))
		if a.Kind != Unavailable.String() {
			called++
			if a.Kind == Transient.String() {
				transient++
			}
		}
	}

	msg := "all providers failed: " + strings.Join(parts, "; ")
	switch {
	case called == 0:
		msg = "no analysis provider is available: " + strings.Join(parts, "; ")
	case called == transient:
		msg = creditsExhausted + " " + msg
	}
	return msg
}
