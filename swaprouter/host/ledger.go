package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	models "github.com/Cogwheel-Validator/spectra-swap-router/swaprouter/models"
)

var (
	// ErrInsufficientFunds is returned by Debit when the account holds less than the amount
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTxInProgress is returned by Begin when a transaction is already open
	ErrTxInProgress = errors.New("ledger transaction already in progress")
)

type balanceKey struct {
	asset   models.AssetInfo
	address string
}

type journalEntry struct {
	key     balanceKey
	prev    models.Uint128
	existed bool
}

// Ledger is an in memory balance book with a single level undo journal.
// Writes made between Begin and Rollback are undone in reverse order.
type Ledger struct {
	mu       sync.Mutex
	balances map[balanceKey]models.Uint128
	journal  []journalEntry
	inTx     bool
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[balanceKey]models.Uint128)}
}

// QueryBalance implements router.BalanceQuerier
func (l *Ledger) QueryBalance(_ context.Context, asset models.AssetInfo, address string) (models.Uint128, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[balanceKey{asset: asset, address: address}], nil
}

func (l *Ledger) Balance(asset models.AssetInfo, address string) models.Uint128 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[balanceKey{asset: asset, address: address}]
}

// Credit adds amount to the account
func (l *Ledger) Credit(asset models.AssetInfo, address string, amount models.Uint128) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := balanceKey{asset: asset, address: address}
	next, err := l.balances[key].CheckedAdd(amount)
	if err != nil {
		return fmt.Errorf("credit %s to %s: %w", models.Asset{Info: asset, Amount: amount}, address, err)
	}
	l.write(key, next)
	return nil
}

// Debit removes amount from the account or fails with ErrInsufficientFunds
func (l *Ledger) Debit(asset models.AssetInfo, address string, amount models.Uint128) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := balanceKey{asset: asset, address: address}
	cur := l.balances[key]
	next, err := cur.CheckedSub(amount)
	if err != nil {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, address, models.Asset{Info: asset, Amount: cur}, amount)
	}
	l.write(key, next)
	return nil
}

// write must be called with mu held
func (l *Ledger) write(key balanceKey, v models.Uint128) {
	if l.inTx {
		prev, existed := l.balances[key]
		l.journal = append(l.journal, journalEntry{key: key, prev: prev, existed: existed})
	}
	l.balances[key] = v
}

// Begin opens a transaction
func (l *Ledger) Begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inTx {
		return ErrTxInProgress
	}
	l.inTx = true
	l.journal = l.journal[:0]
	return nil
}

// Commit keeps every write since Begin
func (l *Ledger) Commit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inTx = false
	l.journal = l.journal[:0]
}

// Rollback undoes every write since Begin
func (l *Ledger) Rollback() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.journal) - 1; i >= 0; i-- {
		e := l.journal[i]
		if e.existed {
			l.balances[e.key] = e.prev
		} else {
			delete(l.balances, e.key)
		}
	}
	l.inTx = false
	l.journal = l.journal[:0]
}

// Holdings lists the non zero balances of an address, sorted by asset
func (l *Ledger) Holdings(address string) []models.Asset {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Asset
	for k, v := range l.balances {
		if k.address == address && !v.IsZero() {
			out = append(out, models.Asset{Info: k.asset, Amount: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Info.String() < out[j].Info.String() })
	return out
}
