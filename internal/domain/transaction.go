package domain

import "time"

// TransactionType distinguishes money leaving the project budget from
// corrections flowing back in.
type TransactionType string

const (
	TransactionExpense TransactionType = "expense"
	TransactionCredit  TransactionType = "credit"
)

// Transaction is one booked actual against a project. Transactions are
// append-only and supplied by the record store; the forecast model consumes
// them read-only to derive realized amounts per month.
type Transaction struct {
	ID        string
	ProjectID string
	Amount    float64 // home currency
	Category  string
	Type      TransactionType
	Date      time.Time
}
