package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/codesnap-api/internal/models"
)

// AttemptRepository exposes persistence helpers for attempts. There is no
// delete: attempts are an append-only history.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	SaveGrade(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (models.Attempt, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.Attempt, error)
}

// NewAttemptRepository constructs an attempt repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

type attemptRepository struct {
	db *gorm.DB
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.Attempt) error {
	return r.db.WithContext(ctx).Omit("Exercise").Create(attempt).Error
}

// SaveGrade writes the grading columns of an attempt that has not been graded yet.
func (r *attemptRepository) SaveGrade(ctx context.Context, attempt *models.Attempt) error {
	res := r.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND graded = ?", attempt.ID, false).
		Updates(map[string]interface{}{
			"score":          attempt.Score,
			"stars":          attempt.Stars,
			"tests_passed":   attempt.TestsPassed,
			"tests_total":    attempt.TestsTotal,
			"test_pass_rate": attempt.TestPassRate,
			"feedback":       attempt.Feedback,
			"graded":         true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	attempt.Graded = true
	return nil
}

func (r *attemptRepository) GetByID(ctx context.Context, id uint) (models.Attempt, error) {
	var attempt models.Attempt
	err := r.db.WithContext(ctx).
		Preload("Exercise").
		First(&attempt, id).Error
	if err != nil {
		return models.Attempt{}, err
	}
	return attempt, nil
}

func (r *attemptRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.Attempt, error) {
	db := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("attempted_at DESC").
		Order("id DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}

	var attempts []models.Attempt
	if err := db.Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}
