package advisor

import (
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"finboard/internal/core"
)

func estimatePrompt(category, history string) string {
	return fmt.Sprintf("You are a personal finance advisor. Look at the transaction history below for the category %q "+
		"and estimate a reasonable monthly budget for it.\n\n"+
		"Transaction history (JSON):\n%s\n\n"+
		"Answer with a JSON object holding \"estimatedBudget\" (a number in the account currency) and "+
		"\"reasoning\" (a short explanation). Return raw JSON only, no Markdown.", category, history)
}

func predictPrompt(history string) string {
	return "You are a financial advisor. Study the user's past transactions, find recurring patterns and trends, " +
		"and predict the expenses likely to come up next.\n\n" +
		"For each prediction give category, description, amount, date (YYYY-MM-DD) and a confidence between 0 and 1. " +
		"Close with a summary of the predicted expenses and the main trends.\n\n" +
		"Past transactions (JSON):\n" + history + "\n\n" +
		"Return raw JSON only, no Markdown."
}

func insightsPrompt(transactions string) string {
	return "You are a personal finance coach. Read the transactions below and describe the user's spending habits: " +
		"where most money goes, unusual spikes, and practical ways to save.\n\n" +
		"Transactions (JSON):\n" + transactions + "\n\n" +
		"Answer with a JSON object holding \"spendingInsights\" as a single string. Return raw JSON only, no Markdown."
}

var estimateSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"estimatedBudget": {Type: genai.TypeNumber, Description: "Estimated monthly budget for the category."},
		"reasoning":       {Type: genai.TypeString, Description: "Why this budget was chosen."},
	},
	Required: []string{"estimatedBudget", "reasoning"},
}

var predictSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"predictedExpenses": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"category":    {Type: genai.TypeString},
					"description": {Type: genai.TypeString},
					"amount":      {Type: genai.TypeNumber},
					"date":        {Type: genai.TypeString, Description: "YYYY-MM-DD"},
					"confidence":  {Type: genai.TypeNumber, Description: "Between 0 and 1."},
				},
				Required: []string{"category", "description", "amount", "date", "confidence"},
			},
		},
		"summary": {Type: genai.TypeString},
	},
	Required: []string{"predictedExpenses", "summary"},
}

var insightsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"spendingInsights": {Type: genai.TypeString},
	},
	Required: []string{"spendingInsights"},
}

// HistoryFromTransactions converts ledger transactions into the slice sent to
// the model. Amounts are positive; the category carries the meaning.
func HistoryFromTransactions(txs []core.Transaction) []HistoryItem {
	out := make([]HistoryItem, 0, len(txs))
	for _, tx := range txs {
		out = append(out, HistoryItem{
			Date:        tx.Day().String(),
			Amount:      tx.Amount.Euros(),
			Category:    tx.Category,
			Description: tx.Description,
		})
	}
	return out
}

// HistoryJSON serializes a history slice for the string-typed calls.
func HistoryJSON(items []HistoryItem) (string, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
