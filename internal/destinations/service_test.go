package destinations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftdrop/settlement-backend/pkg/db/models"
	"github.com/swiftdrop/settlement-backend/pkg/enums"
	pkgerrors "github.com/swiftdrop/settlement-backend/pkg/errors"
)

type stubDestinationsRepo struct {
	rows []models.BankDestination
}

func (s *stubDestinationsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubDestinationsRepo) FindDestination(ctx context.Context, id uuid.UUID) (*models.BankDestination, error) {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return &s.rows[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubDestinationsRepo) ListByPayee(ctx context.Context, payeeID uuid.UUID) ([]models.BankDestination, error) {
	var out []models.BankDestination
	for _, row := range s.rows {
		if row.PayeeID == payeeID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *stubDestinationsRepo) FindVerifiedPrimary(ctx context.Context, payeeID uuid.UUID) (*models.BankDestination, error) {
	for i := range s.rows {
		row := &s.rows[i]
		if row.PayeeID == payeeID && row.IsPrimary && row.Status == enums.DestinationStatusVerified {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubDestinationsRepo) FindNewestVerified(ctx context.Context, payeeID uuid.UUID) (*models.BankDestination, error) {
	var newest *models.BankDestination
	for i := range s.rows {
		row := &s.rows[i]
		if row.PayeeID != payeeID || row.Status != enums.DestinationStatusVerified {
			continue
		}
		if newest == nil || (row.VerifiedAt != nil && newest.VerifiedAt != nil && row.VerifiedAt.After(*newest.VerifiedAt)) {
			newest = row
		}
	}
	if newest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return newest, nil
}

func verifiedAt(offset time.Duration) *time.Time {
	at := time.Now().UTC().Add(offset)
	return &at
}

func TestEligiblePrefersVerifiedPrimary(t *testing.T) {
	payeeID := uuid.New()
	primary := models.BankDestination{
		ID: uuid.New(), PayeeID: payeeID, Label: "main",
		Status: enums.DestinationStatusVerified, IsPrimary: true, VerifiedAt: verifiedAt(-48 * time.Hour),
	}
	newer := models.BankDestination{
		ID: uuid.New(), PayeeID: payeeID, Label: "savings",
		Status: enums.DestinationStatusVerified, VerifiedAt: verifiedAt(-time.Hour),
	}
	svc, err := NewService(&stubDestinationsRepo{rows: []models.BankDestination{newer, primary}})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	got, err := svc.Eligible(context.Background(), payeeID)
	if err != nil {
		t.Fatalf("eligible failed: %v", err)
	}
	if got.ID != primary.ID {
		t.Fatalf("want primary %s, got %s", primary.ID, got.ID)
	}
}

func TestEligibleFallsBackToNewestVerified(t *testing.T) {
	payeeID := uuid.New()
	older := models.BankDestination{
		ID: uuid.New(), PayeeID: payeeID, Label: "old",
		Status: enums.DestinationStatusVerified, VerifiedAt: verifiedAt(-72 * time.Hour),
	}
	newer := models.BankDestination{
		ID: uuid.New(), PayeeID: payeeID, Label: "new",
		Status: enums.DestinationStatusVerified, VerifiedAt: verifiedAt(-time.Hour),
	}
	unverifiedPrimary := models.BankDestination{
		ID: uuid.New(), PayeeID: payeeID, Label: "primary",
		Status: enums.DestinationStatusPending, IsPrimary: true,
	}
	svc, _ := NewService(&stubDestinationsRepo{rows: []models.BankDestination{older, newer, unverifiedPrimary}})

	got, err := svc.Eligible(context.Background(), payeeID)
	if err != nil {
		t.Fatalf("eligible failed: %v", err)
	}
	if got.ID != newer.ID {
		t.Fatalf("want newest verified %s, got %s", newer.ID, got.ID)
	}
}

func TestEligibleWithoutVerifiedDestination(t *testing.T) {
	payeeID := uuid.New()
	unverified := models.BankDestination{
		ID: uuid.New(), PayeeID: payeeID, Label: "pending",
		Status: enums.DestinationStatusPending, IsPrimary: true,
	}
	svc, _ := NewService(&stubDestinationsRepo{rows: []models.BankDestination{unverified}})

	_, err := svc.Eligible(context.Background(), payeeID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePrecondition {
		t.Fatalf("expected precondition failure, got %v", err)
	}
}

func TestValidateRejectsForeignDestination(t *testing.T) {
	destination := models.BankDestination{
		ID: uuid.New(), PayeeID: uuid.New(),
		Status: enums.DestinationStatusVerified,
	}
	svc, _ := NewService(&stubDestinationsRepo{rows: []models.BankDestination{destination}})

	_, err := svc.Validate(context.Background(), nil, uuid.New(), destination.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestValidateRejectsUnverified(t *testing.T) {
	payeeID := uuid.New()
	destination := models.BankDestination{
		ID: uuid.New(), PayeeID: payeeID,
		Status: enums.DestinationStatusFailed,
	}
	svc, _ := NewService(&stubDestinationsRepo{rows: []models.BankDestination{destination}})

	_, err := svc.Validate(context.Background(), nil, payeeID, destination.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePrecondition {
		t.Fatalf("expected precondition failure, got %v", err)
	}
}
