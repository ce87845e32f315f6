package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// FilePoster appends transactions to a JSON lines file. A transaction whose
// import id is already in the file is a duplicate.
type FilePoster struct {
	Path string

	mu sync.Mutex
}

func (f *FilePoster) Post(ctx context.Context, tx Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.Path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open ledger file: %w", err)
	}
	defer file.Close()

	known, err := importIDs(file)
	if err != nil {
		return fmt.Errorf("cannot read ledger file %q: %w", f.Path, err)
	}
	if known[tx.ImportID] {
		return ErrDuplicate
	}
	if err := Encode(file, tx); err != nil {
		return fmt.Errorf("cannot write ledger file %q: %w", f.Path, err)
	}
	return nil
}

// Transactions reads all the transactions of the file.
func (f *FilePoster) Transactions() ([]Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, err := os.Open(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return decode(file)
}

// Encode writes transactions as JSON lines.
func Encode(w io.Writer, txs ...Transaction) error {
	enc := json.NewEncoder(w)
	for _, tx := range txs {
		if err := enc.Encode(tx); err != nil {
			return err
		}
	}
	return nil
}

func decode(r io.Reader) ([]Transaction, error) {
	var txs []Transaction
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var tx Transaction
		if err := json.Unmarshal(scanner.Bytes(), &tx); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		txs = append(txs, tx)
	}
	return txs, scanner.Err()
}

func importIDs(r io.Reader) (map[string]bool, error) {
	txs, err := decode(r)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(txs))
	for _, tx := range txs {
		ids[tx.ImportID] = true
	}
	return ids, nil
}
