package service

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/prepview/prepview/internal/storage"
	"github.com/rs/zerolog/log"
)

// RecognizedWord is one word with its time offsets inside the recording.
type RecognizedWord struct {
	Word     string
	StartSec float64
	EndSec   float64
}

// RecognitionResult is the transcription of one audio object.
type RecognitionResult struct {
	Transcript string
	Words      []RecognizedWord
}

// SpeechToTextService converts a stored recording into a transcript with
// word-level timestamps. Implementations must be safe for concurrent use.
type SpeechToTextService interface {
	Recognize(ctx context.Context, audioKey, languageCode string) (*RecognitionResult, error)
}

type googleSpeechService struct {
	client *speech.Client
	store  storage.AudioStore
}

// NewGoogleSpeechService wires Google Cloud Speech-to-Text. Credentials come
// from GOOGLE_APPLICATION_CREDENTIALS.
func NewGoogleSpeechService(store storage.AudioStore) (SpeechToTextService, error) {
	ctx := context.Background()
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Speech client: %w", err)
	}
	return &googleSpeechService{client: client, store: store}, nil
}

func (s *googleSpeechService) Recognize(ctx context.Context, audioKey, languageCode string) (*RecognitionResult, error) {
	audioContent, err := s.store.GetAudio(audioKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio for recognition: %w", err)
	}

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               languageCode,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioContent},
		},
	}

	resp, err := s.client.Recognize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("speech recognition failed: %w", err)
	}

	var transcriptBuilder strings.Builder
	var words []RecognizedWord
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]
		if transcriptBuilder.Len() > 0 {
			transcriptBuilder.WriteString("\n")
		}
		transcriptBuilder.WriteString(alt.Transcript)
		for _, w := range alt.Words {
			rw := RecognizedWord{Word: w.Word}
			if w.StartTime != nil {
				rw.StartSec = w.StartTime.AsDuration().Seconds()
			}
			if w.EndTime != nil {
				rw.EndSec = w.EndTime.AsDuration().Seconds()
			}
			words = append(words, rw)
		}
	}

	transcript := strings.TrimSpace(transcriptBuilder.String())
	log.Debug().Str("audioKey", audioKey).Int("words", len(words)).Msg("Speech recognition completed")
	return &RecognitionResult{Transcript: transcript, Words: words}, nil
}
