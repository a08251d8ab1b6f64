package response

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/boothsim/internal/domain"
)

// Source identifies which step of the degradation chain produced a reply.
type Source string

const (
	SourceTemplate   Source = "template"
	SourceGenerative Source = "generative"
	SourceMock       Source = "mock"
	SourceCanned     Source = "canned"
)

// Request is what a generative collaborator receives.
type Request struct {
	SessionID string           `json:"session_id"`
	// Seed is the session's outcome seed; deterministic generators key on it.
	Seed      string           `json:"seed"`
	System    string           `json:"system"`
	History   []domain.Message `json:"history"`
	Message   string           `json:"message"`
	Phase     domain.Phase     `json:"phase"`
	Persona   domain.Persona   `json:"persona"`
}

// Generator produces free-text attendee replies.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// DefaultEnrichTimeout bounds a single generator call.
const DefaultEnrichTimeout = 4 * time.Second

// Fallback walks primary -> secondary -> canned and always returns a reply.
type Fallback struct {
	primary   Generator
	secondary Generator
	timeout   time.Duration
	resolver  *Resolver
	logger    *slog.Logger
}

// NewFallback wires the degradation chain. Either generator may be nil.
func NewFallback(primary, secondary Generator, timeout time.Duration, resolver *Resolver, logger *slog.Logger) *Fallback {
	if timeout <= 0 {
		timeout = DefaultEnrichTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		timeout:   timeout,
		resolver:  resolver,
		logger:    logger,
	}
}

// Reply returns the first non-empty cleaned generator output, or the phase's
// canned line. Errors and timeouts are logged and never returned.
func (f *Fallback) Reply(ctx context.Context, req Request) (string, Source) {
	steps := []struct {
		gen    Generator
		source Source
	}{
		{f.primary, SourceGenerative},
		{f.secondary, SourceMock},
	}
	for _, step := range steps {
		if step.gen == nil {
			continue
		}
		text, err := f.call(ctx, step.gen, req)
		if err != nil {
			f.logger.Warn("generator failed, degrading",
				"session_id", req.SessionID, "generator", step.gen.Name(), "error", err)
			continue
		}
		if text = Clean(text); text != "" {
			return text, step.source
		}
		f.logger.Warn("generator returned empty reply, degrading",
			"session_id", req.SessionID, "generator", step.gen.Name())
	}
	return f.resolver.Canned(req.Phase), SourceCanned
}

type generated struct {
	text string
	err  error
}

func (f *Fallback) call(ctx context.Context, gen Generator, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	done := make(chan generated, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- generated{err: fmt.Errorf("generator panicked: %v", r)}
			}
		}()
		text, err := gen.Generate(callCtx, req)
		done <- generated{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-callCtx.Done():
		return "", fmt.Errorf("generate with %s: %w", gen.Name(), callCtx.Err())
	}
}
