package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/etnz/orderledger"
)

// Poster writes transactions to a ledger.
type Poster interface {
	Post(ctx context.Context, tx Transaction) error
}

// ErrDuplicate is returned by a Poster when the ledger already holds a
// transaction with the same import id.
var ErrDuplicate = errors.New("transaction already imported")

// Result is the outcome of posting one record.
type Result struct {
	Key         string      `json:"key"`
	Transaction Transaction `json:"transaction"`
	Duplicate   bool        `json:"duplicate,omitempty"`
	Err         error       `json:"-"`
	Error       string      `json:"error,omitempty"`
}

// Posted reports whether the record is in the ledger.
func (r Result) Posted() bool { return r.Err == nil }

// NonePosted reports whether no record made it to the ledger. An order posted
// as a single record is then missing from the ledger altogether.
func NonePosted(results []Result) bool {
	for _, r := range results {
		if r.Posted() {
			return false
		}
	}
	return true
}

// PostAll posts every record independently: a failure does not stop the
// others. It returns one Result per record and the failures joined.
func PostAll(ctx context.Context, p Poster, records []orderledger.Record) ([]Result, error) {
	results := make([]Result, 0, len(records))
	var errs []error
	for _, r := range records {
		tx := FromRecord(r)
		res := Result{Key: r.Key, Transaction: tx}
		err := p.Post(ctx, tx)
		switch {
		case errors.Is(err, ErrDuplicate):
			res.Duplicate = true
		case err != nil:
			res.Err = fmt.Errorf("cannot post %q: %w", r.Key, err)
			res.Error = res.Err.Error()
			errs = append(errs, res.Err)
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
