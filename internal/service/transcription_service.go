package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prepview/prepview/config"
	"github.com/prepview/prepview/internal/model"
	"github.com/prepview/prepview/internal/queue"
	"github.com/prepview/prepview/internal/repository"
	"github.com/prepview/prepview/internal/storage"
	"github.com/rs/zerolog/log"
)

// Filler tokens counted as substring occurrences in the transcript.
var fillerTokens = map[string][]string{
	"ko": {"음", "어", "그", "그러니까", "약간", "뭔가"},
	"en": {"um", "uh", "like", "you know", "actually", "basically"},
}

// pauseThresholdSec is the minimum gap between consecutive words that
// counts as a pause.
const pauseThresholdSec = 0.3

// TranscriptionService consumes storage object-created events, runs
// speech-to-text, derives speaking metrics and marks the QA record
// processed. Handling is idempotent so queue replays converge on the same
// record state.
type TranscriptionService interface {
	HandleAudioEvent(ctx context.Context, msg *queue.AudioEventMessage) error
}

type transcriptionService struct {
	stt       SpeechToTextService
	qaRepo    repository.QARepository
	readiness ReadinessService
	cfg       *config.Config
}

func NewTranscriptionService(stt SpeechToTextService, qaRepo repository.QARepository, readiness ReadinessService, cfg *config.Config) TranscriptionService {
	return &transcriptionService{stt: stt, qaRepo: qaRepo, readiness: readiness, cfg: cfg}
}

func (s *transcriptionService) HandleAudioEvent(ctx context.Context, msg *queue.AudioEventMessage) error {
	// Only recordings under the interview audio prefix are ours.
	if !strings.HasPrefix(msg.Path, storage.AudioPathPrefix) || !strings.HasPrefix(msg.ContentType, "audio/") {
		return nil
	}

	ownerID := msg.Metadata["ownerId"]
	sessionID := msg.Metadata["sessionId"]
	questionID := msg.Metadata["questionId"]
	if ownerID == "" || sessionID == "" || questionID == "" {
		log.Warn().Str("path", msg.Path).Msg("Audio event missing required metadata, skipping")
		return nil
	}

	language := msg.Metadata["language"]
	if language == "" {
		language = s.cfg.Speech.DefaultLanguage
	}

	transcript := ""
	var words []RecognizedWord
	result, err := s.stt.Recognize(ctx, msg.Path, language)
	if err != nil {
		// A failed recognition must not stall the session. The QA record
		// still moves to processed with an empty transcript so the
		// readiness gate can fire.
		log.Error().Err(err).Str("sessionId", sessionID).Str("questionId", questionID).Msg("Speech recognition failed, recording empty transcript")
	} else {
		transcript = result.Transcript
		words = result.Words
	}

	metrics := ComputeSpeechMetrics(transcript, words, s.cfg.Speech.FallbackWPM, language)

	if err := s.qaRepo.MarkProcessed(sessionID, questionID, transcript, &metrics, time.Now()); err != nil {
		return fmt.Errorf("failed to mark QA processed: %w", err)
	}

	log.Info().
		Str("sessionId", sessionID).
		Str("questionId", questionID).
		Int("wpm", metrics.WPM).
		Float64("durationSec", metrics.DurationSec).
		Msg("QA transcription completed")

	return s.readiness.Recheck(ctx, sessionID)
}

// ComputeSpeechMetrics derives speaking metrics from a transcript and the
// recognizer's word time offsets. When no timestamps are available the
// duration falls back to an estimate from fallbackWPM and pause data is
// omitted.
func ComputeSpeechMetrics(transcript string, words []RecognizedWord, fallbackWPM int, language string) model.SpeechMetrics {
	metrics := model.SpeechMetrics{Sentiment: "neutral"}
	if strings.TrimSpace(transcript) == "" {
		return metrics
	}

	totalWords := len(strings.Fields(strings.ReplaceAll(transcript, "\n", " ")))

	if len(words) > 0 && words[len(words)-1].EndSec > 0 {
		metrics.DurationSec = words[len(words)-1].EndSec
	} else {
		if fallbackWPM <= 0 {
			fallbackWPM = 120
		}
		metrics.DurationSec = math.Max(1, math.Round(float64(totalWords)*60/float64(fallbackWPM)))
	}

	effectiveDuration := math.Max(metrics.DurationSec, 1)
	metrics.WPM = int(math.Round(float64(totalWords) / (effectiveDuration / 60)))

	fillers := fillerTokens[languageKey(language)]
	lower := strings.ToLower(transcript)
	for _, f := range fillers {
		metrics.FillerCount += strings.Count(lower, f)
	}
	metrics.FillerRatePerMin = math.Round(float64(metrics.FillerCount)/effectiveDuration*60*100) / 100

	if avg, ok := averagePause(words); ok {
		metrics.AvgPauseSec = &avg
	}
	return metrics
}

func languageKey(language string) string {
	if strings.HasPrefix(strings.ToLower(language), "en") {
		return "en"
	}
	return "ko"
}

// averagePause returns the mean length of inter-word gaps longer than the
// pause threshold. It reports false when timestamps are unavailable or no
// qualifying pause exists.
func averagePause(words []RecognizedWord) (float64, bool) {
	if len(words) < 2 {
		return 0, false
	}
	var total float64
	count := 0
	for i := 1; i < len(words); i++ {
		gap := words[i].StartSec - words[i-1].EndSec
		if gap > pauseThresholdSec {
			total += gap
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return math.Round(total/float64(count)*100) / 100, true
}
