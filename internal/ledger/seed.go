package ledger

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"finboard/internal/core"
)

// DefaultAccountTypes are installed into an empty store.
func DefaultAccountTypes() []core.AccountType {
	return []core.AccountType{
		{ID: "type_1", Name: "Checking", Classification: core.Asset, Icon: "Landmark"},
		{ID: "type_2", Name: "Savings", Classification: core.Asset, Icon: "Banknote"},
		{ID: "type_3", Name: "Credit Card", Classification: core.Liability, Icon: "CreditCard"},
		{ID: "type_4", Name: "Cash", Classification: core.Asset, Icon: "Wallet"},
		{ID: "type_5", Name: "Loan/IOU", Classification: core.Asset, Icon: "Scale"},
	}
}

func DefaultCategories() []core.Category {
	return []core.Category{
		{Name: "Food & Drink", Subcategories: []string{"Groceries", "Restaurants", "Coffee Shops", "Bars"}},
		{Name: "Shopping", Subcategories: []string{"Clothing", "Electronics", "Home Goods", "Books"}},
		{Name: "Transportation", Subcategories: []string{"Gasoline", "Public Transit", "Ride Share", "Parking"}},
		{Name: "Subscriptions", Subcategories: []string{"Streaming", "Software", "Gym", "News"}},
		{Name: "Utilities", Subcategories: []string{"Electricity", "Water", "Internet", "Phone"}},
		{Name: "Health & Fitness", Subcategories: []string{"Gym Membership", "Doctor", "Pharmacy"}},
		{Name: "Entertainment", Subcategories: []string{"Movies", "Concerts", "Games"}},
		{Name: "Salary", Subcategories: []string{}},
		{Name: "Freelance", Subcategories: []string{}},
		{Name: "Reimbursement", Subcategories: []string{}},
		{Name: core.TransfersCategory, Subcategories: []string{}},
		{Name: "Other", Subcategories: []string{}},
	}
}

func DefaultLabels() []core.Label {
	return []core.Label{
		{Name: "Personal", Description: "For personal expenses and purchases."},
		{Name: "Work", Description: "Work-related expenses that may be reimbursable."},
		{Name: "Household", Description: "Shared expenses for the home."},
		{Name: "Reimbursable", Description: "Expenses that will be reimbursed."},
	}
}

// LoadTaxonomy reads base/seed_categories.txt ("Name: sub1, sub2" per line)
// and base/seed_labels.txt ("Name: description"). A missing or empty file
// yields the built-in defaults for that half.
func LoadTaxonomy(base string) ([]core.Category, []core.Label) {
	var cats []core.Category
	for _, line := range readLines(filepath.Join(base, "seed_categories.txt")) {
		name, rest, _ := strings.Cut(line, ":")
		c := core.Category{Name: strings.TrimSpace(name), Subcategories: []string{}}
		for _, sub := range strings.Split(rest, ",") {
			if sub = strings.TrimSpace(sub); sub != "" {
				c.Subcategories = append(c.Subcategories, sub)
			}
		}
		cats = append(cats, c)
	}
	var labels []core.Label
	for _, line := range readLines(filepath.Join(base, "seed_labels.txt")) {
		name, desc, _ := strings.Cut(line, ":")
		labels = append(labels, core.Label{Name: strings.TrimSpace(name), Description: strings.TrimSpace(desc)})
	}
	if len(cats) == 0 {
		cats = DefaultCategories()
	}
	if len(labels) == 0 {
		labels = DefaultLabels()
	}
	return DedupeCategories(cats), DedupeLabels(labels)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// DedupeCategories keeps the first occurrence of each name and merges
// duplicate subcategories, preserving input order.
func DedupeCategories(in []core.Category) []core.Category {
	seen := map[string]int{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		i, ok := seen[name]
		if !ok {
			i = len(out)
			seen[name] = i
			out = append(out, core.Category{Name: name, Subcategories: []string{}})
		}
		out[i].Subcategories = dedupeStrings(append(out[i].Subcategories, c.Subcategories...))
	}
	return out
}

func DedupeLabels(in []core.Label) []core.Label {
	seen := map[string]struct{}{}
	out := make([]core.Label, 0, len(in))
	for _, l := range in {
		l.Name = strings.TrimSpace(l.Name)
		if l.Name == "" {
			continue
		}
		if _, ok := seen[l.Name]; ok {
			continue
		}
		seen[l.Name] = struct{}{}
		out = append(out, l)
	}
	return out
}

func dedupeStrings(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
