package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-exam-grader/internal/models"
)

// GradingReportRepository indexes archived grading reports.
type GradingReportRepository interface {
	Create(ctx context.Context, record *models.GradingReport) error
	ListByStudent(ctx context.Context, studentID string, limit int) ([]models.GradingReport, error)
}

type gradingReportRepository struct {
	db *gorm.DB
}

// NewGradingReportRepository constructs a repository for grading report records.
func NewGradingReportRepository(db *gorm.DB) GradingReportRepository {
	return &gradingReportRepository{db: db}
}

func (r *gradingReportRepository) Create(ctx context.Context, record *models.GradingReport) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *gradingReportRepository) ListByStudent(ctx context.Context, studentID string, limit int) ([]models.GradingReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var records []models.GradingReport
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
