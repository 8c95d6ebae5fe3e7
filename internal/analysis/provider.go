package analysis

import (
	"context"
	"errors"
	"fmt"
)

// Prompt is the provider-neutral request handed to an adapter.
type Prompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Provider is one LLM backend. Models returns the primary model first and an
// optional secondary model that is only tried after a Transient failure.
// Generate returns the raw JSON text produced by the model; adapters report
// failures as *ProviderError so the chain never inspects error strings.
type Provider interface {
	Name() string
	Models() []string
	Available() bool
	Generate(ctx context.Context, model string, prompt Prompt) (string, error)
}

type FailureKind int

const (
	Hard FailureKind = iota
	Transient
	Unavailable
)

func (k FailureKind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Unavailable:
		return "unavailable"
	default:
		return "hard"
	}
}

var (
	ErrProviderUnavailable = errors.New("provider is not configured")
	ErrMalformedResponse   = errors.New("provider returned a malformed analysis")
)

type ProviderError struct {
	Provider string
	Model    string
	Kind     FailureKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s/%s %s failure: %v", e.Provider, e.Model, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err with its classification.
func NewProviderError(provider, model string, kind FailureKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Model: model, Kind: kind, Err: err}
}

// KindOf classifies err. Unclassified errors are Hard except for deadline
// expiry, which is always Transient.
func KindOf(err error) FailureKind {
	if err == nil {
		return Hard
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}
	if errors.Is(err, ErrProviderUnavailable) {
		return Unavailable
	}
	return Hard
}
