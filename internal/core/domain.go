package core

import (
	"errors"
	"strings"
	"time"
)

// TransfersCategory is the category both legs of a transfer are recorded under.
const TransfersCategory = "Transfers"

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Asset     Classification = "asset"
	Liability Classification = "liability"
)

const (
	Once    Frequency = "once"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

type (
	TransactionType string
	Classification  string
	Frequency       string

	// Date is a calendar day, always held at midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	AccountType struct {
		ID             string         `json:"id"`
		Name           string         `json:"name"`
		Classification Classification `json:"classification"`
		Icon           string         `json:"icon,omitempty"`
	}

	// Account carries the authoritative as-of-now balance.
	Account struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		TypeID  string `json:"typeId"`
		Balance Money  `json:"balance"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		Date        time.Time       `json:"date"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Subcategory string          `json:"subcategory,omitempty"`
		Label       string          `json:"label,omitempty"`
		AccountID   string          `json:"accountId"`
		TransferID  string          `json:"transferId,omitempty"`
	}

	// Budget is a spending ceiling for one category. Spent is derived from the
	// ledger for whatever period the caller asks about.
	Budget struct {
		ID       string `json:"id"`
		Category string `json:"category"`
		Amount   Money  `json:"amount"`
	}

	Reminder struct {
		ID          string    `json:"id"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		DueDate     time.Time `json:"dueDate"`
		Frequency   Frequency `json:"frequency"`
		AccountID   string    `json:"accountId"`
		IsPaid      bool      `json:"isPaid"`
	}

	Category struct {
		Name          string   `json:"name"`
		Subcategories []string `json:"subcategories"`
	}

	Label struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
)

const maxDescriptionLen = 200

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrEmptyDescription      = errors.New("empty description")
	ErrDescriptionTooLong    = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory         = errors.New("empty category")
	ErrEmptyName             = errors.New("empty name")
	ErrInvalidType           = errors.New("invalid transaction type")
	ErrInvalidClassification = errors.New("invalid account classification")
	ErrInvalidFrequency      = errors.New("invalid frequency")
	ErrZeroDate              = errors.New("date cannot be zero")
	ErrEmptyAccount          = errors.New("empty account reference")
	ErrSameAccount           = errors.New("source and destination account must differ")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (c Classification) Valid() bool {
	return c == Asset || c == Liability
}

func (f Frequency) Valid() bool {
	switch f {
	case Once, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Signed returns the forward effect of the transaction on its account balance.
func (t Transaction) Signed() int64 {
	if t.Type == Income {
		return t.Amount.Cents
	}
	return -t.Amount.Cents
}

// IsTransfer reports whether the transaction moves funds between owned accounts.
func (t Transaction) IsTransfer() bool {
	return t.TransferID != "" || t.Category == TransfersCategory
}

// Day is the calendar day the transaction is booked on.
func (t Transaction) Day() Date {
	return DateOf(t.Date)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func validateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) == 0 {
		return invalid("description", desc, ErrEmptyDescription)
	}
	if len(desc) > maxDescriptionLen {
		return invalid("description", len(desc), ErrDescriptionTooLong)
	}
	return nil
}

// Validate checks the transaction shape. Account existence is the store's job.
func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return invalid("date", t.Date, ErrZeroDate)
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return invalid("amount", t.Amount, err)
	}
	if !t.Type.Valid() {
		return invalid("type", t.Type, ErrInvalidType)
	}
	if strings.TrimSpace(t.Category) == "" {
		return invalid("category", t.Category, ErrEmptyCategory)
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return invalid("accountId", t.AccountID, ErrEmptyAccount)
	}
	return nil
}

func (at AccountType) Validate() error {
	if strings.TrimSpace(at.Name) == "" {
		return invalid("name", at.Name, ErrEmptyName)
	}
	if !at.Classification.Valid() {
		return invalid("classification", at.Classification, ErrInvalidClassification)
	}
	return nil
}

// Validate allows any signed opening balance; credit cards usually start negative.
func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return invalid("name", a.Name, ErrEmptyName)
	}
	if strings.TrimSpace(a.TypeID) == "" {
		return invalid("typeId", a.TypeID, ErrEmptyName)
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return invalid("category", b.Category, ErrEmptyCategory)
	}
	if err := b.Amount.Validate(); err != nil {
		return invalid("amount", b.Amount, err)
	}
	return nil
}

func (r Reminder) Validate() error {
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if err := r.Amount.Validate(); err != nil {
		return invalid("amount", r.Amount, err)
	}
	if r.DueDate.IsZero() {
		return invalid("dueDate", r.DueDate, ErrZeroDate)
	}
	if !r.Frequency.Valid() {
		return invalid("frequency", r.Frequency, ErrInvalidFrequency)
	}
	if strings.TrimSpace(r.AccountID) == "" {
		return invalid("accountId", r.AccountID, ErrEmptyAccount)
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name", c.Name, ErrEmptyName)
	}
	return nil
}

func (l Label) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return invalid("name", l.Name, ErrEmptyName)
	}
	return nil
}
