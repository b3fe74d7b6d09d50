package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"finboard/internal/core"
	"finboard/internal/ledger"
)

// Store is the in-memory ledger. A single RWMutex gives single-writer,
// multi-reader access; every mutation completes under one write lock.
type Store struct {
	mu       sync.RWMutex
	version  int64
	types    []core.AccountType
	accounts []core.Account
	txs      []core.Transaction
	budgets  []core.Budget
	remind   []core.Reminder
	cats     []core.Category
	labels   []core.Label
}

var _ ledger.Store = (*Store)(nil)

func New(cats []core.Category, labels []core.Label) *Store {
	return &Store{
		types:  ledger.DefaultAccountTypes(),
		cats:   ledger.DedupeCategories(cats),
		labels: ledger.DedupeLabels(labels),
	}
}

// NewFromFiles seeds the taxonomy from the seed files under base, falling
// back to the built-in defaults.
func NewFromFiles(base string) *Store {
	return New(ledger.LoadTaxonomy(base))
}

func (s *Store) CreateAccountType(_ context.Context, at core.AccountType) (core.AccountType, error) {
	if err := at.Validate(); err != nil {
		return at, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if at.ID == "" {
		at.ID = ledger.NewID()
	}
	for _, existing := range s.types {
		if existing.ID == at.ID {
			return at, &core.ConflictError{Resource: "account type", ID: at.ID, Reason: "already exists"}
		}
	}
	s.types = append(s.types, at)
	s.version++
	return at, nil
}

func (s *Store) ListAccountTypes(_ context.Context) ([]core.AccountType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.AccountType(nil), s.types...), nil
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return a, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typeIndex(a.TypeID) < 0 {
		return a, core.UnknownReference("typeId", "account type", a.TypeID)
	}
	if a.ID == "" {
		a.ID = ledger.NewID()
	}
	if s.accountIndex(a.ID) >= 0 {
		return a, &core.ConflictError{Resource: "account", ID: a.ID, Reason: "already exists"}
	}
	s.accounts = append(s.accounts, a)
	s.version++
	return a, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.accountIndex(id)
	if i < 0 {
		return core.Account{}, core.NotFound("account", id)
	}
	return s.accounts[i], nil
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Account(nil), s.accounts...), nil
}

// AddTransaction appends tx and applies its signed amount to the account balance.
func (s *Store) AddTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	tx, err := ledger.PrepareTransaction(tx)
	if err != nil {
		return tx, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.accountIndex(tx.AccountID)
	if i < 0 {
		return tx, core.UnknownReference("accountId", "account", tx.AccountID)
	}
	if s.txIndex(tx.ID) >= 0 {
		return tx, &core.ConflictError{Resource: "transaction", ID: tx.ID, Reason: "already exists"}
	}
	s.accounts[i].Balance.Cents += tx.Signed()
	s.txs = append(s.txs, tx)
	s.version++
	return tx, nil
}

// AddTransactions validates the whole batch under one lock before applying
// any of it.
func (s *Store) AddTransactions(_ context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		tx, err := ledger.PrepareTransaction(tx)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(out))
	idx := make([]int, len(out))
	for n, tx := range out {
		i := s.accountIndex(tx.AccountID)
		if i < 0 {
			return nil, core.UnknownReference("accountId", "account", tx.AccountID)
		}
		if seen[tx.ID] || s.txIndex(tx.ID) >= 0 {
			return nil, &core.ConflictError{Resource: "transaction", ID: tx.ID, Reason: "already exists"}
		}
		seen[tx.ID] = true
		idx[n] = i
	}
	for n, tx := range out {
		s.accounts[idx[n]].Balance.Cents += tx.Signed()
	}
	s.txs = append(s.txs, out...)
	if len(out) > 0 {
		s.version++
	}
	return out, nil
}

// AddTransfer records both legs and moves both balances under one lock.
func (s *Store) AddTransfer(_ context.Context, req ledger.TransferRequest) (ledger.Transfer, error) {
	if err := req.Validate(); err != nil {
		return ledger.Transfer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fi := s.accountIndex(req.FromAccountID)
	if fi < 0 {
		return ledger.Transfer{}, core.UnknownReference("fromAccountId", "account", req.FromAccountID)
	}
	ti := s.accountIndex(req.ToAccountID)
	if ti < 0 {
		return ledger.Transfer{}, core.UnknownReference("toAccountId", "account", req.ToAccountID)
	}
	tr := ledger.BuildTransfer(req, s.accounts[fi], s.accounts[ti])
	s.accounts[fi].Balance.Cents += tr.Out.Signed()
	s.accounts[ti].Balance.Cents += tr.In.Signed()
	s.txs = append(s.txs, tr.Out, tr.In)
	s.version++
	return tr, nil
}

func (s *Store) RemoveTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(id)
	if i < 0 {
		return core.NotFound("transaction", id)
	}
	tx := s.txs[i]
	if tx.TransferID != "" {
		return &core.ConflictError{Resource: "transaction", ID: id, Reason: ledger.ErrTransferLeg.Error()}
	}
	s.reverse(tx)
	s.txs = append(s.txs[:i], s.txs[i+1:]...)
	s.version++
	return nil
}

// RemoveTransfer deletes both legs of transferID and reverses their effects.
func (s *Store) RemoveTransfer(_ context.Context, transferID string) error {
	if transferID == "" {
		return core.NotFound("transfer", transferID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]core.Transaction, 0, len(s.txs))
	var legs []core.Transaction
	for _, tx := range s.txs {
		if tx.TransferID == transferID {
			legs = append(legs, tx)
			continue
		}
		kept = append(kept, tx)
	}
	if len(legs) == 0 {
		return core.NotFound("transfer", transferID)
	}
	for _, leg := range legs {
		s.reverse(leg)
	}
	s.txs = kept
	s.version++
	return nil
}

func (s *Store) ListTransactions(_ context.Context, f ledger.Filter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return f.Apply(s.txs), nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return b, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryIndex(b.Category) < 0 {
		return b, core.NotFound("category", b.Category)
	}
	if b.ID == "" {
		b.ID = ledger.NewID()
	}
	s.budgets = append(s.budgets, b)
	s.version++
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Budget(nil), s.budgets...), nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.budgets {
		if b.ID == id {
			s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
			s.version++
			return nil
		}
	}
	return core.NotFound("budget", id)
}

func (s *Store) CreateReminder(_ context.Context, r core.Reminder) (core.Reminder, error) {
	if err := r.Validate(); err != nil {
		return r, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accountIndex(r.AccountID) < 0 {
		return r, core.UnknownReference("accountId", "account", r.AccountID)
	}
	if r.ID == "" {
		r.ID = ledger.NewID()
	}
	s.remind = append(s.remind, r)
	s.version++
	return r, nil
}

func (s *Store) GetReminder(_ context.Context, id string) (core.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.reminderIndex(id)
	if i < 0 {
		return core.Reminder{}, core.NotFound("reminder", id)
	}
	return s.remind[i], nil
}

func (s *Store) ListReminders(_ context.Context) ([]core.Reminder, error) {
	s.mu.RLock()
	out := append([]core.Reminder(nil), s.remind...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *Store) UpdateReminder(_ context.Context, r core.Reminder) (core.Reminder, error) {
	if err := r.Validate(); err != nil {
		return r, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.reminderIndex(r.ID)
	if i < 0 {
		return r, core.NotFound("reminder", r.ID)
	}
	if s.accountIndex(r.AccountID) < 0 {
		return r, core.UnknownReference("accountId", "account", r.AccountID)
	}
	s.remind[i] = r
	s.version++
	return r, nil
}

func (s *Store) DeleteReminder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.reminderIndex(id)
	if i < 0 {
		return core.NotFound("reminder", id)
	}
	s.remind = append(s.remind[:i], s.remind[i+1:]...)
	s.version++
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Category, len(s.cats))
	for i, c := range s.cats {
		out[i] = core.Category{Name: c.Name, Subcategories: append([]string{}, c.Subcategories...)}
	}
	return out, nil
}

// SaveCategory inserts or replaces the category with the same name.
func (s *Store) SaveCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return c, err
	}
	c = ledger.DedupeCategories([]core.Category{c})[0]
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.categoryIndex(c.Name); i >= 0 {
		s.cats[i] = c
	} else {
		s.cats = append(s.cats, c)
	}
	s.version++
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(name)
	if i < 0 {
		return core.NotFound("category", name)
	}
	if name == core.TransfersCategory {
		return &core.ConflictError{Resource: "category", ID: name, Reason: "reserved for transfers"}
	}
	s.cats = append(s.cats[:i], s.cats[i+1:]...)
	s.version++
	return nil
}

func (s *Store) ListLabels(_ context.Context) ([]core.Label, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Label(nil), s.labels...), nil
}

func (s *Store) SaveLabel(_ context.Context, l core.Label) (core.Label, error) {
	if err := l.Validate(); err != nil {
		return l, err
	}
	l.Name = strings.TrimSpace(l.Name)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.labels {
		if s.labels[i].Name == l.Name {
			s.labels[i] = l
			s.version++
			return l, nil
		}
	}
	s.labels = append(s.labels, l)
	s.version++
	return l, nil
}

func (s *Store) DeleteLabel(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.labels {
		if l.Name == name {
			s.labels = append(s.labels[:i], s.labels[i+1:]...)
			s.version++
			return nil
		}
	}
	return core.NotFound("label", name)
}

// Snapshot copies the ledger under a read lock.
func (s *Store) Snapshot(ctx context.Context) (ledger.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ledger.Snapshot{
		Version:      s.version,
		AccountTypes: append([]core.AccountType(nil), s.types...),
		Accounts:     append([]core.Account(nil), s.accounts...),
		Transactions: append([]core.Transaction(nil), s.txs...),
		Budgets:      append([]core.Budget(nil), s.budgets...),
	}, nil
}

func (s *Store) reverse(tx core.Transaction) {
	if i := s.accountIndex(tx.AccountID); i >= 0 {
		s.accounts[i].Balance.Cents -= tx.Signed()
	}
}

func (s *Store) typeIndex(id string) int {
	for i := range s.types {
		if s.types[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) accountIndex(id string) int {
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) txIndex(id string) int {
	for i := range s.txs {
		if s.txs[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) reminderIndex(id string) int {
	for i := range s.remind {
		if s.remind[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) categoryIndex(name string) int {
	for i := range s.cats {
		if s.cats[i].Name == name {
			return i
		}
	}
	return -1
}
