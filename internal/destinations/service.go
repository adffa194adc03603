package destinations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftdrop/settlement-backend/pkg/db/models"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
)

// Service resolves which bank destination a payout may target.
type Service interface {
	// Eligible picks the payout target for a payee: the verified primary if
	// one exists, otherwise the most recently verified destination. No
	// verified destination is a precondition failure.
	Eligible(ctx context.Context, payeeID uuid.UUID) (*models.BankDestination, error)
	// EligibleInTx is Eligible inside the caller's transaction, so payout
	// creation sees a consistent destination.
	EligibleInTx(ctx context.Context, tx *gorm.DB, payeeID uuid.UUID) (*models.BankDestination, error)
	List(ctx context.Context, payeeID uuid.UUID) ([]models.BankDestination, error)
	// Validate confirms the destination belongs to the payee and is verified.
	Validate(ctx context.Context, tx *gorm.DB, payeeID, destinationID uuid.UUID) (*models.BankDestination, error)
}

type service struct {
	repo Repository
}

// NewService builds a destination gate with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("destinations repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Eligible(ctx context.Context, payeeID uuid.UUID) (*models.BankDestination, error) {
	return s.eligible(ctx, s.repo, payeeID)
}

func (s *service) EligibleInTx(ctx context.Context, tx *gorm.DB, payeeID uuid.UUID) (*models.BankDestination, error) {
	return s.eligible(ctx, s.repo.WithTx(tx), payeeID)
}

func (s *service) eligible(ctx context.Context, repo Repository, payeeID uuid.UUID) (*models.BankDestination, error) {
	if payeeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payee id required")
	}

	primary, err := repo.FindVerifiedPrimary(ctx, payeeID)
	if err == nil {
		return primary, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load primary destination")
	}

	newest, err := repo.FindNewestVerified(ctx, payeeID)
	if err == nil {
		return newest, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load verified destinations")
	}
	return nil, pkgerrors.New(pkgerrors.CodePrecondition, "no verified bank destination on file")
}

func (s *service) List(ctx context.Context, payeeID uuid.UUID) ([]models.BankDestination, error) {
	if payeeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payee id required")
	}
	rows, err := s.repo.ListByPayee(ctx, payeeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list destinations")
	}
	return rows, nil
}

func (s *service) Validate(ctx context.Context, tx *gorm.DB, payeeID, destinationID uuid.UUID) (*models.BankDestination, error) {
	repo := s.repo.WithTx(tx)
	destination, err := repo.FindDestination(ctx, destinationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "destination not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load destination")
	}
	if destination.PayeeID != payeeID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "destination does not belong to payee")
	}
	if destination.Status != enums.DestinationStatusVerified {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition,
			fmt.Sprintf("destination is %s, payouts require a verified destination", destination.Status))
	}
	return destination, nil
}
