package repository

import (
	"context"
	"errors"

	"github.com/boostcampwm2025/ios02-damago/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a transaction lost a write race and
	// its retries are exhausted
	ErrConflict = errors.New("transaction conflict")
)

// MaxBatchOps bounds the number of writes issued by one bulk delete
const MaxBatchOps = 500

// Tx is the set of document operations available inside a transaction.
// Every read made through a Tx is validated again at commit time.
type Tx interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByCode(ctx context.Context, code string) (*models.Account, error)
	PutAccount(ctx context.Context, account *models.Account) error
	DeleteAccount(ctx context.Context, id string) error

	GetCouple(ctx context.Context, id string) (*models.Couple, error)
	PutCouple(ctx context.Context, couple *models.Couple) error
	DeleteCouple(ctx context.Context, id string) error

	GetPet(ctx context.Context, id string) (*models.Pet, error)
	PutPet(ctx context.Context, pet *models.Pet) error
	ListPets(ctx context.Context, coupleID string) ([]*models.Pet, error)
	DeletePet(ctx context.Context, id string) error

	GetAnswer(ctx context.Context, coupleID string, track models.Track, itemID string) (*models.Answer, error)
	PutAnswer(ctx context.Context, answer *models.Answer) error
	ListCompletedAnswers(ctx context.Context, coupleID string, track models.Track, limit int) ([]*models.Answer, error)
	DeleteAnswers(ctx context.Context, coupleID string) error
}

// TxFunc is the body of a transaction. It may be invoked more than once and
// must not keep state between invocations.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is a transactional document store
type Store interface {
	// RunInTx runs fn atomically, re-running it on write conflicts
	RunInTx(ctx context.Context, fn TxFunc) error
	// View runs fn against a consistent read-only snapshot
	View(ctx context.Context, fn TxFunc) error
}
