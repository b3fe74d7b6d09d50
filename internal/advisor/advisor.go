// Package advisor talks to the generative model that estimates budgets,
// predicts upcoming expenses and comments on spending habits.
//
// The model is a black box: prompts go out, JSON comes back and only its
// declared shape is checked. Every failure surfaces as core.UpstreamError and
// no call is retried automatically.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/genai"

	"finboard/internal/core"
)

const service = "advisor"

const (
	OpEstimateBudget = "estimate_budget"
	OpPredict        = "predict_expenses"
	OpInsights       = "analyze_spending"
)

var (
	ErrInvalidHistory = errors.New("transaction history is not valid JSON")
	ErrEmptyResponse  = errors.New("empty response from model")
	ErrBadShape       = errors.New("response does not match the declared shape")
)

type (
	BudgetEstimate struct {
		EstimatedBudget float64 `json:"estimatedBudget"`
		Reasoning       string  `json:"reasoning"`
	}

	// HistoryItem is the serialized transaction slice sent to the model.
	HistoryItem struct {
		Date        string  `json:"date"`
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		Description string  `json:"description,omitempty"`
	}

	PredictedExpense struct {
		Category    string  `json:"category"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		Date        string  `json:"date"`
		Confidence  float64 `json:"confidence"`
	}

	Prediction struct {
		PredictedExpenses []PredictedExpense `json:"predictedExpenses"`
		Summary           string             `json:"summary"`
	}

	Insights struct {
		SpendingInsights string `json:"spendingInsights"`
	}
)

// Advisor is the request/response contract the rest of the app depends on.
type Advisor interface {
	EstimateBudget(ctx context.Context, category, historyJSON string) (BudgetEstimate, error)
	PredictFutureExpenses(ctx context.Context, history []HistoryItem) (Prediction, error)
	AnalyzeSpendingHabits(ctx context.Context, transactionsJSON string) (Insights, error)
}

// Generator produces raw model text for a prompt constrained by schema.
type Generator interface {
	Generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// Recorder observes advisor calls; outcome is "ok", "error", "timeout" or "open".
type Recorder interface {
	ObserveAdvisorCall(op, outcome string, d time.Duration)
}

type Config struct {
	Timeout time.Duration
	// MaxFailures consecutive failures open the breaker for Cooldown.
	MaxFailures uint32
	Cooldown    time.Duration
}

func DefaultConfig() Config {
	return Config{Timeout: 30 * time.Second, MaxFailures: 5, Cooldown: time.Minute}
}

// Client implements Advisor over a Generator with a per-call timeout and a
// circuit breaker.
type Client struct {
	gen      Generator
	cb       *gobreaker.CircuitBreaker
	timeout  time.Duration
	recorder Recorder
}

var _ Advisor = (*Client)(nil)

func New(gen Generator, cfg Config, rec Recorder) *Client {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultConfig().MaxFailures
	}
	settings := gobreaker.Settings{
		Name:    service,
		Timeout: cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Advisor circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Client{
		gen:      gen,
		cb:       gobreaker.NewCircuitBreaker(settings),
		timeout:  cfg.Timeout,
		recorder: rec,
	}
}

func (c *Client) EstimateBudget(ctx context.Context, category, historyJSON string) (BudgetEstimate, error) {
	if strings.TrimSpace(category) == "" {
		return BudgetEstimate{}, core.Invalid("categoryId", category, core.ErrEmptyCategory)
	}
	if !json.Valid([]byte(historyJSON)) {
		return BudgetEstimate{}, core.Invalid("transactionHistory", truncate(historyJSON), ErrInvalidHistory)
	}
	// Pointers tell a missing field apart from a zero value.
	var wire struct {
		EstimatedBudget *float64 `json:"estimatedBudget"`
		Reasoning       *string  `json:"reasoning"`
	}
	err := c.call(ctx, OpEstimateBudget, estimatePrompt(category, historyJSON), estimateSchema, &wire, func() error {
		switch {
		case wire.EstimatedBudget == nil:
			return fmt.Errorf("%w: missing estimatedBudget", ErrBadShape)
		case wire.Reasoning == nil:
			return fmt.Errorf("%w: missing reasoning", ErrBadShape)
		case *wire.EstimatedBudget < 0:
			return fmt.Errorf("%w: negative estimatedBudget", ErrBadShape)
		}
		return nil
	})
	if err != nil {
		return BudgetEstimate{}, err
	}
	return BudgetEstimate{EstimatedBudget: *wire.EstimatedBudget, Reasoning: *wire.Reasoning}, nil
}

func (c *Client) PredictFutureExpenses(ctx context.Context, history []HistoryItem) (Prediction, error) {
	payload, err := json.Marshal(history)
	if err != nil {
		return Prediction{}, core.Invalid("transactions", len(history), err)
	}
	var out Prediction
	err = c.call(ctx, OpPredict, predictPrompt(string(payload)), predictSchema, &out, func() error {
		if out.PredictedExpenses == nil {
			return fmt.Errorf("%w: missing predictedExpenses", ErrBadShape)
		}
		for i, p := range out.PredictedExpenses {
			if p.Confidence < 0 || p.Confidence > 1 {
				return fmt.Errorf("%w: predictedExpenses[%d].confidence %v outside [0,1]", ErrBadShape, i, p.Confidence)
			}
			if p.Category == "" || p.Date == "" {
				return fmt.Errorf("%w: predictedExpenses[%d] missing category or date", ErrBadShape, i)
			}
		}
		return nil
	})
	return out, err
}

func (c *Client) AnalyzeSpendingHabits(ctx context.Context, transactionsJSON string) (Insights, error) {
	if !json.Valid([]byte(transactionsJSON)) {
		return Insights{}, core.Invalid("transactions", truncate(transactionsJSON), ErrInvalidHistory)
	}
	var out Insights
	err := c.call(ctx, OpInsights, insightsPrompt(transactionsJSON), insightsSchema, &out, func() error {
		if strings.TrimSpace(out.SpendingInsights) == "" {
			return fmt.Errorf("%w: empty spendingInsights", ErrBadShape)
		}
		return nil
	})
	return out, err
}

// call runs one generation through the breaker, decodes the JSON into out
// with unknown fields tolerated and required fields enforced by check.
func (c *Client) call(ctx context.Context, op, prompt string, schema *genai.Schema, out any, check func() error) error {
	start := time.Now()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.cb.Execute(func() (interface{}, error) {
		text, err := c.gen.Generate(ctx, prompt, schema)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			return nil, ErrEmptyResponse
		}
		return text, nil
	})

	outcome := "ok"
	defer func() {
		if c.recorder != nil {
			c.recorder.ObserveAdvisorCall(op, outcome, time.Since(start))
		}
	}()

	if err != nil {
		timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			outcome = "open"
		case timeout:
			outcome = "timeout"
		default:
			outcome = "error"
		}
		slog.WarnContext(ctx, "Advisor call failed", "operation", op, "outcome", outcome, "error", err)
		return &core.UpstreamError{Service: service, Op: op, Timeout: timeout, Cause: err}
	}

	clean := cleanModelJSON(raw.(string))
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		outcome = "error"
		return &core.UpstreamError{Service: service, Op: op, Cause: fmt.Errorf("%w: %v", ErrBadShape, err)}
	}
	if err := check(); err != nil {
		outcome = "error"
		return &core.UpstreamError{Service: service, Op: op, Cause: err}
	}
	return nil
}

// cleanModelJSON strips Markdown fences and any chatter around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = strings.TrimSpace(s[idx+1:])
		} else {
			return s
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}

func truncate(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
