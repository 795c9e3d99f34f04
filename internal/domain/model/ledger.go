package model

import (
	"fmt"
	"strings"
	"time"
)

// Defaults the WhatsApp assistant relies on when a field is omitted.
const (
	DefaultTransactionCategory  = "Outros"
	DefaultTransactionType      = TransactionExpense
	DefaultSubscriptionCategory = "Assinatura"
	DefaultBillingCycle         = "monthly"
)

const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Date        time.Time `json:"date"`
}

// RecurringSubscription is a bill the user pays on a cycle (streaming, gym).
type RecurringSubscription struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Amount          float64   `json:"amount"`
	Category        string    `json:"category"`
	NextBillingDate time.Time `json:"next_billing_date"`
	BillingCycle    string    `json:"billing_cycle"`
}

// RecentItems is the short listing shown in a chat reply.
type RecentItems struct {
	Transactions  []*Transaction           `json:"transactions"`
	Subscriptions []*RecurringSubscription `json:"subscriptions"`
	Reminders     []*Reminder              `json:"reminders"`
}

// LedgerTable names a user-owned table the assistant may edit.
type LedgerTable string

const (
	TableTransactions  LedgerTable = "transactions"
	TableSubscriptions LedgerTable = "recurring_subscriptions"
	TableReminders     LedgerTable = "reminders"
)

type columnKind int

const (
	columnText columnKind = iota
	columnNumber
	columnTime
)

var editableColumns = map[LedgerTable]map[string]columnKind{
	TableTransactions: {
		"amount":      columnNumber,
		"category":    columnText,
		"description": columnText,
		"type":        columnText,
		"date":        columnTime,
	},
	TableSubscriptions: {
		"name":              columnText,
		"amount":            columnNumber,
		"category":          columnText,
		"next_billing_date": columnTime,
		"billing_cycle":     columnText,
	},
	TableReminders: {
		"title":     columnText,
		"valor":     columnNumber,
		"remind_at": columnTime,
		"status":    columnText,
	},
}

func ParseLedgerTable(s string) (LedgerTable, error) {
	t := LedgerTable(strings.TrimSpace(s))
	if _, ok := editableColumns[t]; !ok {
		return "", fmt.Errorf("unknown table %q", s)
	}
	return t, nil
}

// Editable reports whether column may be changed through the assistant.
func (t LedgerTable) Editable(column string) bool {
	_, ok := editableColumns[t][column]
	return ok
}

// Changes validates decoded JSON fields against the table's editable
// columns and converts them to column values.
func (t LedgerTable) Changes(fields map[string]any) (map[string]any, error) {
	cols, ok := editableColumns[t]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", t)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("nothing to update")
	}
	out := make(map[string]any, len(fields))
	for name, raw := range fields {
		kind, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("column %q cannot be changed", name)
		}
		switch kind {
		case columnNumber:
			v, ok := raw.(float64)
			if !ok {
				return nil, fmt.Errorf("column %q must be a number", name)
			}
			out[name] = v
		case columnTime:
			s, _ := raw.(string)
			v, err := ParseDate(s)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			out[name] = v
		default:
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("column %q must be text", name)
			}
			out[name] = s
		}
	}
	if v, ok := out["type"].(string); ok && t == TableTransactions && !ValidTransactionType(v) {
		return nil, fmt.Errorf("type must be %q or %q", TransactionIncome, TransactionExpense)
	}
	return out, nil
}

func ValidTransactionType(s string) bool {
	return s == TransactionIncome || s == TransactionExpense
}

// ParseDate accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date (UTC).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}
