package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prepview/prepview/internal/model"
	"github.com/prepview/prepview/internal/queue"
	"github.com/prepview/prepview/internal/repository"
	"github.com/prepview/prepview/internal/testutil"
)

type fakeBuildQueue struct {
	mu     sync.Mutex
	pushed []*queue.BuildMessage
}

func (f *fakeBuildQueue) Push(ctx context.Context, msg *queue.BuildMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, msg)
	return nil
}

func (f *fakeBuildQueue) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed)
}

func setupReadiness(t *testing.T) (*gorm.DB, repository.SessionRepository, repository.QARepository, repository.SummaryRepository, *fakeBuildQueue, ReadinessService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	sessionRepo := repository.NewSessionRepository(db)
	qaRepo := repository.NewQARepository(db)
	summaryRepo := repository.NewSummaryRepository(db)
	builds := &fakeBuildQueue{}
	svc := NewReadinessService(sessionRepo, qaRepo, summaryRepo, builds)
	return db, sessionRepo, qaRepo, summaryRepo, builds, svc
}

func TestReadiness_NotReadyUntilAllProcessed(t *testing.T) {
	db, _, _, summaryRepo, builds, svc := setupReadiness(t)
	defer testutil.CleanupTestDB(t, db)

	require.NoError(t, db.Create(testutil.NewSession("s1", "owner-1", 3)).Error)
	require.NoError(t, db.Create(testutil.NewProcessedQA("s1", "q1", "answer one")).Error)
	require.NoError(t, db.Create(testutil.NewProcessedQA("s1", "q2", "answer two")).Error)

	require.NoError(t, svc.Recheck(context.Background(), "s1"))

	_, err := summaryRepo.FindBySession("s1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Equal(t, 0, builds.count())
}

func TestReadiness_LastCompletionFiresGateOnce(t *testing.T) {
	db, sessionRepo, _, summaryRepo, builds, svc := setupReadiness(t)
	defer testutil.CleanupTestDB(t, db)

	require.NoError(t, db.Create(testutil.NewSession("s1", "owner-1", 3)).Error)
	for _, q := range []string{"q1", "q2", "q3"} {
		require.NoError(t, db.Create(testutil.NewProcessedQA("s1", q, "answer "+q)).Error)
	}

	require.NoError(t, svc.Recheck(context.Background(), "s1"))

	session, err := sessionRepo.FindByID("s1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusProcessing, session.Status)
	assert.NotNil(t, session.EndedAt)

	summary, err := summaryRepo.FindBySession("s1")
	require.NoError(t, err)
	assert.Equal(t, model.SummaryStatusPending, summary.Status)
	assert.Equal(t, "owner-1", summary.OwnerID)
	assert.Equal(t, 1, builds.count())

	// At-least-once delivery replays the trigger; the gate must not open a
	// second build.
	require.NoError(t, svc.Recheck(context.Background(), "s1"))
	assert.Equal(t, 1, builds.count())
}

func TestReadiness_ConcurrentRechecksConverge(t *testing.T) {
	db, _, _, summaryRepo, builds, svc := setupReadiness(t)
	defer testutil.CleanupTestDB(t, db)

	require.NoError(t, db.Create(testutil.NewSession("s1", "owner-1", 3)).Error)
	for _, q := range []string{"q1", "q2", "q3"} {
		require.NoError(t, db.Create(testutil.NewProcessedQA("s1", q, "answer "+q)).Error)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Recheck(context.Background(), "s1")
		}()
	}
	wg.Wait()

	summary, err := summaryRepo.FindBySession("s1")
	require.NoError(t, err)
	assert.Equal(t, model.SummaryStatusPending, summary.Status)
	assert.Equal(t, 1, builds.count())
}

func TestReadiness_UnknownSessionFails(t *testing.T) {
	db, _, _, _, _, svc := setupReadiness(t)
	defer testutil.CleanupTestDB(t, db)

	err := svc.Recheck(context.Background(), "missing")
	assert.Error(t, err)
}
