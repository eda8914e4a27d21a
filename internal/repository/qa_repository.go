package repository

import (
	"time"

	"github.com/prepview/prepview/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QARepository interface {
	// UpsertUploaded creates or refreshes a QA record in the uploaded state.
	// A retried upload overwrites the audio fields; a record that already
	// reached processed or skipped is left untouched.
	UpsertUploaded(qa *model.QuestionAnswer) error
	// UpsertSkipped records a question that was answered with no audio.
	UpsertSkipped(qa *model.QuestionAnswer) error
	// MarkProcessed merge-writes transcript and metrics and flips the record
	// to processed. Safe to re-run: the write converges on the same state.
	MarkProcessed(sessionID, questionID string, transcript string, metrics *model.SpeechMetrics, processedAt time.Time) error
	FindBySession(sessionID string) ([]model.QuestionAnswer, error)
	FindByKey(sessionID, questionID string) (*model.QuestionAnswer, error)
	CountProcessed(sessionID string) (int64, error)
}

type qaRepository struct {
	db *gorm.DB
}

func NewQARepository(db *gorm.DB) QARepository {
	return &qaRepository{db: db}
}

func (r *qaRepository) UpsertUploaded(qa *model.QuestionAnswer) error {
	qa.Status = model.QAStatusUploaded
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"question_text", "audio_path", "audio_url", "updated_at",
		}),
		// Never regress a processed or skipped record back to uploaded.
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "question_answers", Name: "status"}, Value: model.QAStatusUploaded},
		}},
	}).Create(qa).Error
}

func (r *qaRepository) UpsertSkipped(qa *model.QuestionAnswer) error {
	qa.Status = model.QAStatusSkipped
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
		DoNothing: true,
	}).Create(qa).Error
}

func (r *qaRepository) MarkProcessed(sessionID, questionID string, transcript string, metrics *model.SpeechMetrics, processedAt time.Time) error {
	return r.db.Model(&model.QuestionAnswer{}).
		Where("session_id = ? AND question_id = ? AND status <> ?", sessionID, questionID, model.QAStatusSkipped).
		Updates(map[string]interface{}{
			"transcript":   transcript,
			"metrics":      metrics,
			"status":       model.QAStatusProcessed,
			"processed_at": processedAt,
		}).Error
}

func (r *qaRepository) FindBySession(sessionID string) ([]model.QuestionAnswer, error) {
	var qas []model.QuestionAnswer
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at ASC, question_id ASC").
		Find(&qas).Error
	return qas, err
}

func (r *qaRepository) FindByKey(sessionID, questionID string) (*model.QuestionAnswer, error) {
	var qa model.QuestionAnswer
	err := r.db.Where("session_id = ? AND question_id = ?", sessionID, questionID).First(&qa).Error
	return &qa, err
}

func (r *qaRepository) CountProcessed(sessionID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.QuestionAnswer{}).
		Where("session_id = ? AND status = ?", sessionID, model.QAStatusProcessed).
		Count(&count).Error
	return count, err
}
