package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prepview/prepview/config"
	"github.com/prepview/prepview/internal/model"
)

func qaWithTranscript(transcript string, metrics *model.SpeechMetrics) *model.QuestionAnswer {
	return &model.QuestionAnswer{
		SessionID:  "s1",
		QuestionID: "q1",
		Transcript: &transcript,
		Metrics:    metrics,
		Status:     model.QAStatusProcessed,
	}
}

func TestRubricService_EmptyTranscriptScoresZero(t *testing.T) {
	rubric := NewRubricService()

	score := rubric.ScoreAnswer(&model.QuestionAnswer{QuestionID: "q1"}, nil, false, config.DefaultRubricWeights())
	assert.Equal(t, 0, score.Score)
	assert.False(t, score.JDKeywordCoverage)
	assert.False(t, score.MetricSpecificity)

	score = rubric.ScoreAnswer(qaWithTranscript("   ", nil), nil, false, config.DefaultRubricWeights())
	assert.Equal(t, 0, score.Score)
}

func TestRubricService_FreeModeScoring(t *testing.T) {
	rubric := NewRubricService()
	weights := config.DefaultRubricWeights()

	// Quantified claim, normal rate: 70 + 8 - 2.5 = 75.5 -> 76
	metrics := &model.SpeechMetrics{WPM: 130, FillerRatePerMin: 2.5}
	score := rubric.ScoreAnswer(qaWithTranscript("성능을 30% 개선했습니다", metrics), nil, false, weights)
	assert.Equal(t, 76, score.Score)
	assert.True(t, score.MetricSpecificity)

	// No numbers, heavy fillers and rushed delivery: 70 - 10 - 5 = 55.
	metrics = &model.SpeechMetrics{WPM: 250, FillerRatePerMin: 40}
	score = rubric.ScoreAnswer(qaWithTranscript("좋은 경험이었습니다", metrics), nil, false, weights)
	assert.Equal(t, 55, score.Score)
	assert.False(t, score.MetricSpecificity)
}

func TestRubricService_ProModeScoring(t *testing.T) {
	rubric := NewRubricService()
	weights := config.DefaultRubricWeights()
	jdKeywords := []string{"Redis", "캐시"}

	// Weighted dimension average 71.6 plus coverage (5) and metric (3)
	// bonuses rounds to 80.
	metrics := &model.SpeechMetrics{WPM: 130, FillerRatePerMin: 0}
	score := rubric.ScoreAnswer(qaWithTranscript("Redis 캐시로 응답 시간을 40% 줄였습니다", metrics), jdKeywords, true, weights)
	assert.Equal(t, 80, score.Score)
	assert.True(t, score.JDKeywordCoverage)
	assert.True(t, score.MetricSpecificity)
}

func TestRubricService_KeywordCoverageIsCaseInsensitive(t *testing.T) {
	rubric := NewRubricService()
	metrics := &model.SpeechMetrics{WPM: 130}

	score := rubric.ScoreAnswer(qaWithTranscript("we migrated to redis for caching", metrics), []string{"Redis"}, false, config.DefaultRubricWeights())
	assert.True(t, score.JDKeywordCoverage)

	score = rubric.ScoreAnswer(qaWithTranscript("we used memcached instead", metrics), []string{"Redis"}, false, config.DefaultRubricWeights())
	assert.False(t, score.JDKeywordCoverage)
}

func TestRubricService_Determinism(t *testing.T) {
	rubric := NewRubricService()
	metrics := &model.SpeechMetrics{WPM: 95, FillerRatePerMin: 3.2}
	qa := qaWithTranscript("테스트 커버리지를 80%까지 올렸습니다", metrics)

	first := rubric.ScoreAnswer(qa, []string{"테스트"}, true, config.DefaultRubricWeights())
	for i := 0; i < 10; i++ {
		again := rubric.ScoreAnswer(qa, []string{"테스트"}, true, config.DefaultRubricWeights())
		assert.Equal(t, first, again)
	}
}

func TestRubricService_OverallScore(t *testing.T) {
	rubric := NewRubricService()

	assert.Equal(t, 0, rubric.OverallScore(nil))
	assert.Equal(t, 65, rubric.OverallScore([]AnswerScore{{Score: 76}, {Score: 54}}))
	assert.Equal(t, 67, rubric.OverallScore([]AnswerScore{{Score: 70}, {Score: 65}, {Score: 65}}))
}

func TestLevelForScoreBoundaries(t *testing.T) {
	assert.Equal(t, model.LevelAdvanced, model.LevelForScore(80))
	assert.Equal(t, model.LevelIntermediate, model.LevelForScore(79))
	assert.Equal(t, model.LevelIntermediate, model.LevelForScore(60))
	assert.Equal(t, model.LevelBeginner, model.LevelForScore(59))
	assert.Equal(t, model.LevelBeginner, model.LevelForScore(0))
}
