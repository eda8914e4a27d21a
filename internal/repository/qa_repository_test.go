package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepview/prepview/internal/model"
	"github.com/prepview/prepview/internal/testutil"
)

func TestQARepository_UpsertUploadedIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewQARepository(db)

	qa := &model.QuestionAnswer{
		SessionID: "s1", QuestionID: "q1", OwnerID: "owner-1",
		QuestionText: "first text", AudioPath: "interviews/owner-1/s1/q1.m4a",
	}
	require.NoError(t, repo.UpsertUploaded(qa))

	// A retried upload replaces the audio fields of the same row.
	retry := &model.QuestionAnswer{
		SessionID: "s1", QuestionID: "q1", OwnerID: "owner-1",
		QuestionText: "second text", AudioPath: "interviews/owner-1/s1/q1.m4a",
	}
	require.NoError(t, repo.UpsertUploaded(retry))

	var count int64
	require.NoError(t, db.Model(&model.QuestionAnswer{}).Where("session_id = ?", "s1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	found, err := repo.FindByKey("s1", "q1")
	require.NoError(t, err)
	assert.Equal(t, "second text", found.QuestionText)
	assert.Equal(t, model.QAStatusUploaded, found.Status)
}

func TestQARepository_UploadNeverRegressesProcessed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewQARepository(db)

	require.NoError(t, repo.UpsertUploaded(&model.QuestionAnswer{
		SessionID: "s1", QuestionID: "q1", OwnerID: "owner-1", QuestionText: "original",
	}))
	metrics := &model.SpeechMetrics{DurationSec: 30, WPM: 120}
	require.NoError(t, repo.MarkProcessed("s1", "q1", "the transcript", metrics, time.Now()))

	// A late replay of the upload must not reset the record.
	require.NoError(t, repo.UpsertUploaded(&model.QuestionAnswer{
		SessionID: "s1", QuestionID: "q1", OwnerID: "owner-1", QuestionText: "replayed",
	}))

	found, err := repo.FindByKey("s1", "q1")
	require.NoError(t, err)
	assert.Equal(t, model.QAStatusProcessed, found.Status)
	assert.Equal(t, "original", found.QuestionText)
	require.NotNil(t, found.Transcript)
	assert.Equal(t, "the transcript", *found.Transcript)
}

func TestQARepository_MarkProcessedSkipsSkipped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewQARepository(db)

	require.NoError(t, repo.UpsertSkipped(&model.QuestionAnswer{
		SessionID: "s1", QuestionID: "q1", OwnerID: "owner-1",
	}))
	require.NoError(t, repo.MarkProcessed("s1", "q1", "ghost transcript", nil, time.Now()))

	found, err := repo.FindByKey("s1", "q1")
	require.NoError(t, err)
	assert.Equal(t, model.QAStatusSkipped, found.Status)
	assert.Nil(t, found.Transcript)
}

func TestQARepository_CountProcessed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewQARepository(db)

	require.NoError(t, db.Create(testutil.NewProcessedQA("s1", "q1", "a")).Error)
	require.NoError(t, db.Create(testutil.NewProcessedQA("s1", "q2", "b")).Error)
	require.NoError(t, repo.UpsertUploaded(&model.QuestionAnswer{SessionID: "s1", QuestionID: "q3"}))
	require.NoError(t, repo.UpsertSkipped(&model.QuestionAnswer{SessionID: "s1", QuestionID: "q4"}))

	count, err := repo.CountProcessed("s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestQARepository_FindBySessionOrdering(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	repo := NewQARepository(db)

	for _, q := range []string{"q2", "q1", "q3"} {
		require.NoError(t, db.Create(testutil.NewProcessedQA("s1", q, "answer")).Error)
	}

	qas, err := repo.FindBySession("s1")
	require.NoError(t, err)
	require.Len(t, qas, 3)
}
