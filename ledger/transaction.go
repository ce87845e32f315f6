// Package ledger posts records to a personal finance ledger.
package ledger

import (
	"github.com/etnz/orderledger"
	"github.com/etnz/orderledger/date"
	"github.com/google/uuid"
)

// MaxMemo is the longest memo a ledger accepts, in runes.
const MaxMemo = 200

// importNamespace derives import ids from record keys.
var importNamespace = uuid.MustParse("6f1c3b0e-8a59-4c1e-9a43-0d7e2a1c5b88")

// Transaction is a ledger entry.
type Transaction struct {
	AmountMinorUnits int64     `json:"amount"` // negative for an expense
	Payee            string    `json:"payee_name"`
	Memo             string    `json:"memo"`
	Date             date.Date `json:"date"`
	ImportID         string    `json:"import_id"` // the same record always gets the same id
}

// FromRecord converts a record into an expense transaction.
func FromRecord(r orderledger.Record) Transaction {
	return Transaction{
		AmountMinorUnits: -r.Amount.MinorUnits(),
		Payee:            r.Payee,
		Memo:             truncate(r.Memo, MaxMemo),
		Date:             r.Date,
		ImportID:         ImportID(r.Key),
	}
}

// ImportID returns the import id of the record with key.
func ImportID(key string) string {
	return uuid.NewSHA1(importNamespace, []byte(key)).String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
