package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"klarity/internal/core"
	"klarity/internal/log"
	"klarity/internal/report"
)

var ErrNoGenerator = errors.New("no text generator configured")

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Suggestion is one generated answer. ID is set once it is saved to the
// user's history.
type Suggestion struct {
	ID        int64     `json:"id,omitempty"`
	Kind      Kind      `json:"kind"`
	Prompt    string    `json:"prompt"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Advisor struct {
	gen    Generator
	now    func() time.Time
	logger *log.Logger
}

func NewAdvisor(gen Generator, logger *log.Logger) *Advisor {
	if logger == nil {
		logger = log.Default(log.ComponentApp)
	}
	return &Advisor{gen: gen, now: time.Now, logger: logger}
}

// Advise builds the prompt of kind for r and asks the generator.
func (a *Advisor) Advise(ctx context.Context, kind Kind, r report.Report) (Suggestion, error) {
	prompt, err := Build(kind, r)
	if err != nil {
		return Suggestion{}, err
	}
	return a.generate(ctx, kind, prompt)
}

// Ask answers a free-form question about txs.
func (a *Advisor) Ask(ctx context.Context, question string, txs []core.Transaction) (Suggestion, error) {
	prompt, err := QuestionPrompt(question, txs)
	if err != nil {
		return Suggestion{}, err
	}
	return a.generate(ctx, "question", prompt)
}

func (a *Advisor) generate(ctx context.Context, kind Kind, prompt string) (Suggestion, error) {
	if a == nil || a.gen == nil {
		return Suggestion{}, ErrNoGenerator
	}
	start := a.now()
	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.WarnContext(ctx, "Text generation failed", "kind", string(kind), log.FieldError, err.Error())
		return Suggestion{}, fmt.Errorf("generate %s: %w", kind, err)
	}
	a.logger.DebugContext(ctx, "Text generated",
		"kind", string(kind),
		log.FieldDuration, a.now().Sub(start).Milliseconds())
	return Suggestion{Kind: kind, Prompt: prompt, Text: text, CreatedAt: a.now().UTC()}, nil
}
