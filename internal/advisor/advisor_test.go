package advisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"finboard/internal/core"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	reply   string
	err     error
	block   bool
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, _ *genai.Schema) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

type fakeRecorder struct {
	outcomes []string
}

func (r *fakeRecorder) ObserveAdvisorCall(_, outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, outcome)
}

func TestEstimateBudget(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n{\"estimatedBudget\": 320.5, \"reasoning\": \"average of last months\"}\n```"}
	rec := &fakeRecorder{}
	c := New(gen, DefaultConfig(), rec)

	got, err := c.EstimateBudget(context.Background(), "Shopping", `[{"amount": 300}]`)
	require.NoError(t, err)
	assert.Equal(t, 320.5, got.EstimatedBudget)
	assert.Equal(t, "average of last months", got.Reasoning)
	assert.Contains(t, gen.prompts[0], `"Shopping"`)
	assert.Equal(t, []string{"ok"}, rec.outcomes)
}

func TestEstimateBudgetRequiresFields(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"empty object", `{}`},
		{"missing reasoning", `{"estimatedBudget": 120}`},
		{"missing estimate", `{"reasoning": "no data"}`},
		{"negative estimate", `{"estimatedBudget": -5, "reasoning": "refunds"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			c := New(&fakeGenerator{reply: tt.reply}, DefaultConfig(), rec)
			got, err := c.EstimateBudget(context.Background(), "Shopping", `[]`)
			assert.True(t, core.IsUpstream(err))
			assert.ErrorIs(t, err, ErrBadShape)
			assert.Equal(t, BudgetEstimate{}, got)
			assert.Equal(t, []string{"error"}, rec.outcomes)
		})
	}

	c := New(&fakeGenerator{reply: `{"estimatedBudget": 0, "reasoning": "no spending yet"}`}, DefaultConfig(), nil)
	got, err := c.EstimateBudget(context.Background(), "Shopping", `[]`)
	require.NoError(t, err)
	assert.Zero(t, got.EstimatedBudget)
}

func TestEstimateBudgetRejectsInvalidJSONBeforeCalling(t *testing.T) {
	gen := &fakeGenerator{}
	c := New(gen, DefaultConfig(), nil)
	_, err := c.EstimateBudget(context.Background(), "Shopping", `[{"amount": `)
	assert.True(t, core.IsValidation(err))
	assert.ErrorIs(t, err, ErrInvalidHistory)
	assert.Zero(t, gen.calls)
}

func TestPredictValidatesConfidence(t *testing.T) {
	gen := &fakeGenerator{reply: `{"predictedExpenses":[{"category":"Utilities","description":"Power","amount":80,"date":"2025-07-01","confidence":1.4}],"summary":"s"}`}
	c := New(gen, DefaultConfig(), nil)
	_, err := c.PredictFutureExpenses(context.Background(), []HistoryItem{{Date: "2025-06-01", Amount: 80, Category: "Utilities"}})
	assert.True(t, core.IsUpstream(err))
	assert.ErrorIs(t, err, ErrBadShape)
}

func TestPredictOK(t *testing.T) {
	gen := &fakeGenerator{reply: `Sure! {"predictedExpenses":[{"category":"Utilities","description":"Power","amount":80,"date":"2025-07-01","confidence":0.9}],"summary":"steady bills"}`}
	c := New(gen, DefaultConfig(), nil)
	got, err := c.PredictFutureExpenses(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, got.PredictedExpenses, 1)
	assert.Equal(t, 0.9, got.PredictedExpenses[0].Confidence)
	assert.Equal(t, "steady bills", got.Summary)
}

func TestPredictMissingField(t *testing.T) {
	gen := &fakeGenerator{reply: `{"summary":"nothing"}`}
	c := New(gen, DefaultConfig(), nil)
	_, err := c.PredictFutureExpenses(context.Background(), nil)
	assert.ErrorIs(t, err, ErrBadShape)
}

func TestAnalyzeSpendingHabits(t *testing.T) {
	gen := &fakeGenerator{reply: `{"spendingInsights":"Food is 40% of spend."}`}
	c := New(gen, DefaultConfig(), nil)
	got, err := c.AnalyzeSpendingHabits(context.Background(), `[]`)
	require.NoError(t, err)
	assert.Equal(t, "Food is 40% of spend.", got.SpendingInsights)

	_, err = c.AnalyzeSpendingHabits(context.Background(), `not json`)
	assert.True(t, core.IsValidation(err))
}

func TestUpstreamFailures(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"generator error", &fakeGenerator{err: errors.New("503 overloaded")}},
		{"empty reply", &fakeGenerator{reply: "   "}},
		{"not json", &fakeGenerator{reply: "I cannot help with that"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.gen, DefaultConfig(), nil)
			_, err := c.AnalyzeSpendingHabits(context.Background(), `[]`)
			assert.True(t, core.IsUpstream(err))
		})
	}
}

func TestTimeout(t *testing.T) {
	rec := &fakeRecorder{}
	c := New(&fakeGenerator{block: true}, Config{Timeout: 20 * time.Millisecond}, rec)
	_, err := c.AnalyzeSpendingHabits(context.Background(), `[]`)
	var up *core.UpstreamError
	require.True(t, errors.As(err, &up))
	assert.True(t, up.Timeout)
	assert.Equal(t, []string{"timeout"}, rec.outcomes)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("down")}
	rec := &fakeRecorder{}
	c := New(gen, Config{MaxFailures: 2, Cooldown: time.Minute}, rec)
	for i := 0; i < 3; i++ {
		_, err := c.AnalyzeSpendingHabits(context.Background(), `[]`)
		assert.True(t, core.IsUpstream(err))
	}
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, []string{"error", "error", "open"}, rec.outcomes)
}

func TestHistoryFromTransactions(t *testing.T) {
	txs := []core.Transaction{{
		Date: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), Amount: core.Money{Cents: 1250},
		Type: core.Expense, Category: "Food", Description: "Lunch",
	}}
	items := HistoryFromTransactions(txs)
	require.Len(t, items, 1)
	assert.Equal(t, HistoryItem{Date: "2025-06-01", Amount: 12.5, Category: "Food", Description: "Lunch"}, items[0])

	s, err := HistoryJSON(items)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"date":"2025-06-01","amount":12.5,"category":"Food","description":"Lunch"}]`, s)
}

func TestCleanModelJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanModelJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanModelJSON(`Here you go: {"a":1} thanks`))
}
