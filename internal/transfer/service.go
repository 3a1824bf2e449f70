package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkraev/fintrack/internal/keywords"
)

var (
	// ErrNotFound reports that a transaction id does not resolve to a
	// transaction owned by the caller.
	ErrNotFound = errors.New("transfer: transaction not found")

	// ErrAlreadyLinked reports that a transaction already participates in an
	// active link. The caller must unlink first.
	ErrAlreadyLinked = errors.New("transfer: transaction already linked")
)

// Link is a persisted, symmetric pairing between two transactions.
// A transaction participates in at most one active link at a time.
type Link struct {
	ID           string    `json:"link_id"`
	UserID       string    `json:"user_id"`
	Transaction1 string    `json:"transaction_1"`
	Transaction2 string    `json:"transaction_2"`
	Confidence   float64   `json:"confidence"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is the persistence boundary for transactions and links.
type Store interface {
	// GetTransaction returns the transaction with the given id when it is
	// owned by userID, or ErrNotFound.
	GetTransaction(ctx context.Context, userID, txnID string) (*Transaction, error)

	// ListTransactions returns all of the user's transactions.
	ListTransactions(ctx context.Context, userID string) ([]Transaction, error)

	// CreateLink persists the link and marks both transactions as linked in
	// one atomic operation. It returns ErrAlreadyLinked when either side
	// already holds an active link.
	CreateLink(ctx context.Context, link Link) error

	// RemoveLink removes any link touching txnID and clears the linked state
	// of both participants. Removing from an unlinked transaction is a no-op.
	RemoveLink(ctx context.Context, userID, txnID string) error

	// GetLink returns the active link touching txnID, or nil when the
	// transaction is not linked.
	GetLink(ctx context.Context, userID, txnID string) (*Link, error)
}

// Service exposes the transfer operations to the serving layer.
type Service struct {
	store Store
	kw    *keywords.Set
	log   zerolog.Logger
}

// NewService creates a transfer service using the given store and transfer
// keyword set.
func NewService(store Store, kw *keywords.Set, log zerolog.Logger) *Service {
	return &Service{store: store, kw: kw, log: log}
}

// Link creates a symmetric transfer link between two of the caller's
// transactions and returns the link id.
func (s *Service) Link(ctx context.Context, userID, txn1ID, txn2ID string, confidence float64, notes string) (string, error) {
	if txn1ID == txn2ID {
		return "", fmt.Errorf("transfer: cannot link a transaction to itself")
	}

	txn1, err := s.store.GetTransaction(ctx, userID, txn1ID)
	if err != nil {
		return "", err
	}
	txn2, err := s.store.GetTransaction(ctx, userID, txn2ID)
	if err != nil {
		return "", err
	}

	// Cheap pre-check; the store's guarded write is the authoritative one
	// under concurrent link attempts.
	if txn1.Linked || txn2.Linked {
		return "", ErrAlreadyLinked
	}

	link := Link{
		ID:           uuid.NewString(),
		UserID:       userID,
		Transaction1: txn1ID,
		Transaction2: txn2ID,
		Confidence:   confidence,
		Notes:        notes,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.CreateLink(ctx, link); err != nil {
		return "", err
	}

	s.log.Info().
		Str("link_id", link.ID).
		Str("transaction_1", txn1ID).
		Str("transaction_2", txn2ID).
		Float64("confidence", confidence).
		Msg("Transfer link created")

	return link.ID, nil
}

// Unlink removes any transfer link touching the given transaction.
// Unlinking an unlinked transaction succeeds as a no-op.
func (s *Service) Unlink(ctx context.Context, userID, txnID string) error {
	if _, err := s.store.GetTransaction(ctx, userID, txnID); err != nil {
		return err
	}

	if err := s.store.RemoveLink(ctx, userID, txnID); err != nil {
		return err
	}

	s.log.Info().Str("transaction_id", txnID).Msg("Transfer link removed")
	return nil
}

// LinkFor returns the active link touching the given transaction, or nil
// when it is not linked.
func (s *Service) LinkFor(ctx context.Context, userID, txnID string) (*Link, error) {
	if _, err := s.store.GetTransaction(ctx, userID, txnID); err != nil {
		return nil, err
	}

	return s.store.GetLink(ctx, userID, txnID)
}

// Detect batch-scans the user's transactions for candidate transfer pairs.
func (s *Service) Detect(ctx context.Context, userID string, opts Options) ([]Suggestion, error) {
	txns, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("transfer: listing transactions: %w", err)
	}

	return Detect(txns, opts, s.kw), nil
}

// SuggestFor scores candidate counterparts for one target transaction.
func (s *Service) SuggestFor(ctx context.Context, userID, txnID string, opts Options) ([]Suggestion, error) {
	target, err := s.store.GetTransaction(ctx, userID, txnID)
	if err != nil {
		return nil, err
	}

	txns, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("transfer: listing transactions: %w", err)
	}

	return SuggestFor(*target, txns, opts, s.kw), nil
}
