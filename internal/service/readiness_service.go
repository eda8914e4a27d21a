package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prepview/prepview/internal/queue"
	"github.com/prepview/prepview/internal/repository"
	"github.com/rs/zerolog/log"
)

// BuildEnqueuer hands a summary build job to the worker queue.
type BuildEnqueuer interface {
	Push(ctx context.Context, msg *queue.BuildMessage) error
}

// ReadinessService decides when a session has enough processed answers to
// start the summary build. The check re-derives readiness from current
// counts on every invocation, so out-of-order and concurrent transcription
// completions all converge on a single pending summary.
type ReadinessService interface {
	Recheck(ctx context.Context, sessionID string) error
}

type readinessService struct {
	sessionRepo repository.SessionRepository
	qaRepo      repository.QARepository
	summaryRepo repository.SummaryRepository
	builds      BuildEnqueuer
}

func NewReadinessService(sessionRepo repository.SessionRepository, qaRepo repository.QARepository, summaryRepo repository.SummaryRepository, builds BuildEnqueuer) ReadinessService {
	return &readinessService{
		sessionRepo: sessionRepo,
		qaRepo:      qaRepo,
		summaryRepo: summaryRepo,
		builds:      builds,
	}
}

func (s *readinessService) Recheck(ctx context.Context, sessionID string) error {
	session, err := s.sessionRepo.FindByID(sessionID)
	if err != nil {
		return fmt.Errorf("readiness check failed to load session %s: %w", sessionID, err)
	}

	processed, err := s.qaRepo.CountProcessed(sessionID)
	if err != nil {
		return fmt.Errorf("readiness check failed to count processed QA: %w", err)
	}
	if processed < int64(session.ExpectedQuestions) {
		log.Debug().
			Str("sessionId", sessionID).
			Int64("processed", processed).
			Int("expected", session.ExpectedQuestions).
			Msg("Session not ready yet")
		return nil
	}

	if err := s.sessionRepo.MarkProcessing(sessionID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark session processing: %w", err)
	}

	created, err := s.summaryRepo.UpsertPending(sessionID, session.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to create pending summary: %w", err)
	}
	if !created {
		// Another transcription completion already opened the summary.
		return nil
	}

	log.Info().Str("sessionId", sessionID).Int64("processed", processed).Msg("Session ready, enqueueing summary build")
	return s.builds.Push(ctx, &queue.BuildMessage{SessionID: sessionID, OwnerID: session.OwnerID})
}
