package repository

import (
	"context"
	"dsa_hub_backend/internal/model"
	"dsa_hub_backend/internal/quizflow"
	"errors"

	"gorm.io/gorm"
)

// AttemptRepository 测验记录归档，实现 quizflow.Archive
type AttemptRepository struct {
	DB *gorm.DB
}

var _ quizflow.Archive = (*AttemptRepository)(nil)

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Record(ctx context.Context, userID uint, a *quizflow.Attempt) error {
	row := model.NewQuizAttempt(userID, *a)
	if err := r.DB.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	a.Seq = int64(row.ID)
	return nil
}

// ListFor 按写入顺序返回
func (r *AttemptRepository) ListFor(ctx context.Context, userID uint, subject quizflow.Subject) ([]quizflow.Attempt, error) {
	var rows []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND subject_kind = ? AND subject_id = ?", userID, subject.Kind, subject.ID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toAttempts(rows), nil
}

func (r *AttemptRepository) Find(ctx context.Context, userID uint, attemptID string) (*quizflow.Attempt, bool, error) {
	var row model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND attempt_id = ?", userID, attemptID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	a := row.Attempt()
	return &a, true, nil
}

// ListByUser 某类主体下的全部记录，kind 为空时不过滤
func (r *AttemptRepository) ListByUser(ctx context.Context, userID uint, kind quizflow.SubjectKind) ([]quizflow.Attempt, error) {
	var rows []model.QuizAttempt
	query := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if kind != "" {
		query = query.Where("subject_kind = ?", kind)
	}
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toAttempts(rows), nil
}

func (r *AttemptRepository) DeleteFor(ctx context.Context, userID uint, subject quizflow.Subject) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("user_id = ? AND subject_kind = ? AND subject_id = ?", userID, subject.Kind, subject.ID).
		Delete(&model.QuizAttempt{})
	return res.RowsAffected, res.Error
}

func toAttempts(rows []model.QuizAttempt) []quizflow.Attempt {
	out := make([]quizflow.Attempt, len(rows))
	for i := range rows {
		out[i] = rows[i].Attempt()
	}
	return out
}
