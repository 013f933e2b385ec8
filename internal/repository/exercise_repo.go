package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/codesnap-api/internal/models"
)

// ErrExerciseInUse indicates an exercise still referenced by attempts.
var ErrExerciseInUse = errors.New("exercise has attempts")

// ExerciseQuery defines filters and pagination for exercises.
type ExerciseQuery struct {
	Language   string
	Difficulty int
	Search     string
	Offset     int
	Limit      int
}

// ExerciseRepository exposes persistence operations for exercises.
type ExerciseRepository interface {
	List(ctx context.Context, query ExerciseQuery) ([]models.Exercise, int64, error)
	GetByID(ctx context.Context, id uint) (models.Exercise, error)
	Create(ctx context.Context, exercise *models.Exercise) error
	Update(ctx context.Context, exercise *models.Exercise) error
	Delete(ctx context.Context, id uint) error
}

// NewExerciseRepository constructs an exercise repository.
func NewExerciseRepository(db *gorm.DB) ExerciseRepository {
	return &exerciseRepository{db: db}
}

type exerciseRepository struct {
	db *gorm.DB
}

func (r *exerciseRepository) List(ctx context.Context, query ExerciseQuery) ([]models.Exercise, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Exercise{})

	if query.Language != "" {
		db = db.Where("LOWER(language) = ?", strings.ToLower(query.Language))
	}

	if query.Difficulty > 0 {
		db = db.Where("difficulty = ?", query.Difficulty)
	}

	if query.Search != "" {
		pattern := fmt.Sprintf("%%%s%%", strings.ToLower(query.Search))
		db = db.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.Offset > 0 {
		db = db.Offset(query.Offset)
	}
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}

	var exercises []models.Exercise
	if err := db.Order("created_at DESC").Order("id DESC").Find(&exercises).Error; err != nil {
		return nil, 0, err
	}

	return exercises, total, nil
}

func (r *exerciseRepository) GetByID(ctx context.Context, id uint) (models.Exercise, error) {
	var exercise models.Exercise
	if err := r.db.WithContext(ctx).First(&exercise, id).Error; err != nil {
		return models.Exercise{}, err
	}
	return exercise, nil
}

func (r *exerciseRepository) Create(ctx context.Context, exercise *models.Exercise) error {
	return r.db.WithContext(ctx).Create(exercise).Error
}

func (r *exerciseRepository) Update(ctx context.Context, exercise *models.Exercise) error {
	return r.db.WithContext(ctx).Save(exercise).Error
}

// Delete removes an exercise that no attempt references.
func (r *exerciseRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var attempts int64
		if err := tx.Model(&models.Attempt{}).Where("exercise_id = ?", id).Count(&attempts).Error; err != nil {
			return err
		}
		if attempts > 0 {
			return ErrExerciseInUse
		}

		result := tx.Delete(&models.Exercise{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
