package model

import (
	"time"

	"gorm.io/gorm"
)

// Session statuses. Transitions are monotonic: active -> processing -> ready|error.
const (
	SessionStatusActive     = "active"
	SessionStatusProcessing = "processing"
	SessionStatusReady      = "ready"
	SessionStatusError      = "error"
)

// Session is one interview-practice run. The expected question count is fixed
// at creation; only the readiness gate and the summary builder mutate status.
type Session struct {
	ID                 string         `gorm:"primarykey" json:"id"` // client-generated session id
	OwnerID            string         `json:"owner_id" gorm:"not null;index"`
	Role               string         `json:"role" gorm:"default:'general'"`
	CompanyID          string         `json:"company_id,omitempty" gorm:"default:'generic'"`
	ExpectedQuestions  int            `json:"expected_questions" gorm:"not null"`
	Status             string         `json:"status" gorm:"default:'active';index"`
	IsPro              bool           `json:"is_pro"`
	JDKeywords         StringList     `json:"jd_keywords,omitempty" gorm:"serializer:json"`
	JDResponsibilities StringList     `json:"jd_responsibilities,omitempty" gorm:"serializer:json"`
	JDQualifications   StringList     `json:"jd_qualifications,omitempty" gorm:"serializer:json"`
	JDURL              string         `json:"jd_url,omitempty"`
	StartedAt          time.Time      `json:"started_at" gorm:"autoCreateTime"`
	EndedAt            *time.Time     `json:"ended_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// StringList is stored as a JSON array column.
type StringList []string
