package postgres

import (
	"context"
	"time"

	"storefinder/internal/domain/repository"
	"storefinder/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// confirmationRepository implements the domain.ConfirmationRepository interface.
type confirmationRepository struct {
	db *gorm.DB
}

// NewConfirmationRepository is the constructor for confirmationRepository.
func NewConfirmationRepository(db *gorm.DB) repository.ConfirmationRepository {
	return &confirmationRepository{db: db}
}

// RecordConfirmation durably records that the user confirmed the store.
// The store id is the primary key, so re-confirming surfaces as a unique
// violation and is treated as success.
func (repo *confirmationRepository) RecordConfirmation(ctx context.Context, storeID uuid.UUID) error {
	confirmationM := &model.ConfirmationModel{
		StoreID:     storeID,
		ConfirmedAt: time.Now(),
	}

	if err := repo.db.WithContext(ctx).Create(confirmationM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return nil
		}

		return errors.Wrap(err, "failed to record confirmation")
	}

	return nil
}

// LoadConfirmedStoreIDs returns every store id the user has ever confirmed.
func (repo *confirmationRepository) LoadConfirmedStoreIDs(ctx context.Context) ([]uuid.UUID, error) {
	var confirmationModels []*model.ConfirmationModel
	err := repo.db.WithContext(ctx).
		Order("confirmed_at ASC").
		Find(&confirmationModels).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load confirmed store IDs")
	}

	ids := make([]uuid.UUID, 0, len(confirmationModels))
	for _, confirmationM := range confirmationModels {
		ids = append(ids, confirmationM.StoreID)
	}

	return ids, nil
}
