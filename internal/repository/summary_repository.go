package repository

import (
	"github.com/prepview/prepview/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SummaryRepository interface {
	// UpsertPending creates the summary placeholder for a session. Re-running
	// after the gate already fired is a no-op; the bool reports whether this
	// call created the record.
	UpsertPending(sessionID, ownerID string) (bool, error)
	// SetProcessing merge-writes the processing status as a visible progress
	// signal, creating the record when a direct build request arrives before
	// the gate fired.
	SetProcessing(sessionID, ownerID string) error
	// Publish fully replaces the summary payload. This is the one intentional
	// whole-record write in the pipeline.
	Publish(summary *model.Summary) error
	// MarkError merge-writes the error status with a display-ready message.
	MarkError(sessionID, message string) error
	FindBySession(sessionID string) (*model.Summary, error)
}

type summaryRepository struct {
	db *gorm.DB
}

func NewSummaryRepository(db *gorm.DB) SummaryRepository {
	return &summaryRepository{db: db}
}

func (r *summaryRepository) UpsertPending(sessionID, ownerID string) (bool, error) {
	summary := model.Summary{
		SessionID: sessionID,
		OwnerID:   ownerID,
		Status:    model.SummaryStatusPending,
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(&summary)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *summaryRepository) SetProcessing(sessionID, ownerID string) error {
	summary := model.Summary{
		SessionID: sessionID,
		OwnerID:   ownerID,
		Status:    model.SummaryStatusProcessing,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"status": model.SummaryStatusProcessing, "error_message": ""}),
	}).Create(&summary).Error
}

func (r *summaryRepository) Publish(summary *model.Summary) error {
	summary.Status = model.SummaryStatusReady
	summary.ErrorMessage = ""
	return r.db.Save(summary).Error
}

func (r *summaryRepository) MarkError(sessionID, message string) error {
	return r.db.Model(&model.Summary{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":        model.SummaryStatusError,
			"error_message": message,
		}).Error
}

func (r *summaryRepository) FindBySession(sessionID string) (*model.Summary, error) {
	var summary model.Summary
	err := r.db.First(&summary, "session_id = ?", sessionID).Error
	return &summary, err
}
