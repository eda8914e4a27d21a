package repository

import (
	"time"

	"github.com/prepview/prepview/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository interface {
	Upsert(session *model.Session) error
	FindByID(id string) (*model.Session, error)
	// MarkProcessing flips the session from active to processing and stamps
	// the end timestamp. It is a no-op when the session already left the
	// active state, which keeps concurrent gate firings convergent.
	MarkProcessing(id string, endedAt time.Time) error
	// MarkFinal records the terminal status after a summary build. Only
	// forward transitions are applied.
	MarkFinal(id string, status string) error
	MergeJD(id string, keywords, responsibilities, qualifications []string, url string) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Upsert(session *model.Session) error {
	// Session creation is merge semantics: retried creates converge on the
	// same row. Expected question count and owner are fixed by the first
	// write and never updated afterwards.
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"role", "company_id", "is_pro", "updated_at",
		}),
	}).Create(session).Error
}

func (r *sessionRepository) FindByID(id string) (*model.Session, error) {
	var session model.Session
	err := r.db.First(&session, "id = ?", id).Error
	return &session, err
}

func (r *sessionRepository) MarkProcessing(id string, endedAt time.Time) error {
	return r.db.Model(&model.Session{}).
		Where("id = ? AND status = ?", id, model.SessionStatusActive).
		Updates(map[string]interface{}{
			"status":   model.SessionStatusProcessing,
			"ended_at": endedAt,
		}).Error
}

func (r *sessionRepository) MarkFinal(id string, status string) error {
	return r.db.Model(&model.Session{}).
		Where("id = ? AND status IN ?", id, []string{model.SessionStatusActive, model.SessionStatusProcessing, model.SessionStatusError}).
		Update("status", status).Error
}

func (r *sessionRepository) MergeJD(id string, keywords, responsibilities, qualifications []string, url string) error {
	return r.db.Model(&model.Session{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"jd_keywords":         model.StringList(keywords),
			"jd_responsibilities": model.StringList(responsibilities),
			"jd_qualifications":   model.StringList(qualifications),
			"jd_url":              url,
			"is_pro":              true,
		}).Error
}
