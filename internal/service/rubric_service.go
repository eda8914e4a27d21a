package service

import (
	"math"
	"regexp"
	"strings"

	"github.com/prepview/prepview/config"
	"github.com/prepview/prepview/internal/model"
)

// Rubric constants. The base score anchors every answer; bonuses and
// penalties move it inside [0, 100].
const (
	rubricBaseScore        = 70.0
	quantificationBonus    = 8.0
	maxFillerPenalty       = 10.0
	speakingRatePenalty    = 5.0
	normalWPMMin           = 90
	normalWPMMax           = 170
	keywordCoverageBonus   = 5.0 // pro mode only
	metricSpecificityBonus = 3.0 // pro mode only
)

// quantifiedClaimRe matches numeric/metric patterns that indicate a
// quantified claim ("reduced latency by 30%", "served 2M requests").
var quantifiedClaimRe = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*(?:%|ms|s|x|배|초|건|명|percent)?`)

// AnswerScore is the deterministic rubric result for one answer.
type AnswerScore struct {
	QuestionID        string
	Score             int
	JDKeywordCoverage bool
	MetricSpecificity bool
}

// RubricService computes per-answer scores from transcripts and speech
// metrics. It is fully deterministic: identical inputs always produce
// identical scores, which is what makes summary rebuilds idempotent.
type RubricService interface {
	ScoreAnswer(qa *model.QuestionAnswer, jdKeywords []string, pro bool, weights config.RubricWeights) AnswerScore
	OverallScore(scores []AnswerScore) int
}

type rubricService struct{}

func NewRubricService() RubricService {
	return &rubricService{}
}

func (s *rubricService) ScoreAnswer(qa *model.QuestionAnswer, jdKeywords []string, pro bool, weights config.RubricWeights) AnswerScore {
	result := AnswerScore{QuestionID: qa.QuestionID}

	transcript := ""
	if qa.Transcript != nil {
		transcript = strings.TrimSpace(*qa.Transcript)
	}
	// Skipped questions and empty transcriptions score zero.
	if transcript == "" {
		return result
	}

	var metrics model.SpeechMetrics
	if qa.Metrics != nil {
		metrics = *qa.Metrics
	}

	quantified := quantifiedClaimRe.MatchString(transcript)
	fillerPenalty := math.Min(metrics.FillerRatePerMin, maxFillerPenalty)
	ratePenalty := 0.0
	if metrics.WPM < normalWPMMin || metrics.WPM > normalWPMMax {
		ratePenalty = speakingRatePenalty
	}
	quantBonus := 0.0
	if quantified {
		quantBonus = quantificationBonus
	}

	result.MetricSpecificity = quantified
	result.JDKeywordCoverage = coversAnyKeyword(transcript, jdKeywords)

	var score float64
	if pro {
		// Weighted sum over rubric dimensions, each anchored at the base
		// score and adjusted by the signal it measures.
		dims := []struct {
			score  float64
			weight float64
		}{
			{rubricBaseScore - ratePenalty, weights.Communication},
			{rubricBaseScore - fillerPenalty, weights.Structure},
			{rubricBaseScore, weights.ProblemSolving},
			{rubricBaseScore, weights.Leadership},
			{rubricBaseScore + quantBonus, weights.Quantification},
			{rubricBaseScore, weights.CultureFit},
		}
		var weightedSum, totalWeight float64
		for _, d := range dims {
			weightedSum += d.score * d.weight
			totalWeight += d.weight
		}
		if totalWeight > 0 {
			score = weightedSum / totalWeight
		}
		if result.JDKeywordCoverage {
			score += keywordCoverageBonus
		}
		if result.MetricSpecificity {
			score += metricSpecificityBonus
		}
	} else {
		score = rubricBaseScore + quantBonus - fillerPenalty - ratePenalty
	}

	result.Score = clampScore(score)
	return result
}

func (s *rubricService) OverallScore(scores []AnswerScore) int {
	if len(scores) == 0 {
		return 0
	}
	total := 0
	for _, sc := range scores {
		total += sc.Score
	}
	return int(math.Round(float64(total) / float64(len(scores))))
}

func coversAnyKeyword(transcript string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(transcript)
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func clampScore(score float64) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(math.Round(score))
}
