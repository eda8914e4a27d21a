package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prepview/prepview/config"
	"github.com/prepview/prepview/internal/model"
	"github.com/prepview/prepview/internal/pubsub"
	"github.com/prepview/prepview/internal/repository"
	"github.com/prepview/prepview/internal/testutil"
)

type fakeGemini struct {
	response string
	err      error
	calls    int
	lastReq  *SummaryRequest
}

func (f *fakeGemini) GenerateInterviewSummary(ctx context.Context, req *SummaryRequest) (string, error) {
	f.calls++
	f.lastReq = req
	return f.response, f.err
}

func (f *fakeGemini) ExtractJDKeywords(ctx context.Context, jdText string) (*JDExtraction, error) {
	return nil, errors.New("not implemented")
}

type fakeProgress struct {
	statuses []string
}

func (f *fakeProgress) PublishProgress(ctx context.Context, msg *pubsub.ProgressMessage) error {
	f.statuses = append(f.statuses, msg.Status)
	return nil
}

const validModelResponse = `{
  "overallScore": 95,
  "level": "Advanced",
  "strengths": ["clear structure"],
  "improvements": ["add more numbers"],
  "tips": ["use the STAR method"],
  "qa": [
    {"id": "q1", "questionText": "question q1", "answerSummary": "improved performance", "modelAnswer": "a model answer", "feedback": "good", "score": 90, "tags": ["성능"], "jdKeywordCoverage": false, "metricSpecificity": true},
    {"id": "q2", "questionText": "question q2", "answerSummary": "teamwork story", "modelAnswer": "another model answer", "feedback": "ok", "score": 88, "tags": [], "jdKeywordCoverage": false, "metricSpecificity": false}
  ]
}`

type summaryFixture struct {
	db          *gorm.DB
	sessionRepo repository.SessionRepository
	qaRepo      repository.QARepository
	summaryRepo repository.SummaryRepository
	gemini      *fakeGemini
	progress    *fakeProgress
	svc         SummaryService
}

func setupSummary(t *testing.T, response string, geminiErr error) *summaryFixture {
	t.Helper()
	return setupSummaryWithConfig(t, response, geminiErr, testConfig())
}

func setupSummaryWithConfig(t *testing.T, response string, geminiErr error, cfg *config.Config) *summaryFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	f := &summaryFixture{
		db:          db,
		sessionRepo: repository.NewSessionRepository(db),
		qaRepo:      repository.NewQARepository(db),
		summaryRepo: repository.NewSummaryRepository(db),
		gemini:      &fakeGemini{response: response, err: geminiErr},
		progress:    &fakeProgress{},
	}
	f.svc = NewSummaryService(f.sessionRepo, f.qaRepo, f.summaryRepo, f.gemini, NewRubricService(), NewKeywordService(), f.progress, cfg)
	return f
}

func (f *summaryFixture) seedSession(t *testing.T) {
	t.Helper()
	require.NoError(t, f.db.Create(testutil.NewSession("s1", "owner-1", 2)).Error)
	qa1 := testutil.NewProcessedQA("s1", "q1", "성능을 30% 개선했습니다")
	qa2 := testutil.NewProcessedQA("s1", "q2", "팀워크가 중요한 프로젝트 경험이 있습니다")
	require.NoError(t, f.db.Create(qa1).Error)
	require.NoError(t, f.db.Create(qa2).Error)
}

func TestSummaryBuild_PublishesDeterministicStructure(t *testing.T) {
	f := setupSummary(t, validModelResponse, nil)
	f.seedSession(t)

	require.NoError(t, f.svc.Build(context.Background(), "s1"))

	summary, err := f.summaryRepo.FindBySession("s1")
	require.NoError(t, err)
	assert.Equal(t, model.SummaryStatusReady, summary.Status)

	// Structural fields come from the rubric, not the model's numbers:
	// q1 scores 70+8-2.67=75, q2 scores 70-2.67=67, mean 71.
	assert.Equal(t, 71, summary.OverallScore)
	assert.Equal(t, model.LevelIntermediate, summary.Level)

	require.Len(t, summary.QAFeedback, 2)
	assert.Equal(t, "q1", summary.QAFeedback[0].QuestionID)
	assert.Equal(t, 75, summary.QAFeedback[0].Score)
	assert.Equal(t, "improved performance", summary.QAFeedback[0].AnswerSummary)
	assert.True(t, summary.QAFeedback[0].MetricSpecificity)
	assert.Equal(t, 67, summary.QAFeedback[1].Score)

	assert.Equal(t, 2, summary.TotalQuestions)
	assert.Equal(t, 90.0, summary.TotalSpeakingSec)
	assert.Equal(t, []string{"clear structure"}, []string(summary.Strengths))

	session, err := f.sessionRepo.FindByID("s1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusReady, session.Status)

	assert.Equal(t, []string{model.SummaryStatusProcessing, model.SummaryStatusReady}, f.progress.statuses)
}

func TestSummaryBuild_IsIdempotent(t *testing.T) {
	f := setupSummary(t, validModelResponse, nil)
	f.seedSession(t)

	require.NoError(t, f.svc.Build(context.Background(), "s1"))
	first, err := f.summaryRepo.FindBySession("s1")
	require.NoError(t, err)

	// The model returns different numbers on the rebuild; structure must
	// not move.
	f.gemini.response = `{"overallScore": 12, "level": "Beginner", "strengths": [], "improvements": [], "tips": [], "qa": []}`
	require.NoError(t, f.svc.Build(context.Background(), "s1"))
	second, err := f.summaryRepo.FindBySession("s1")
	require.NoError(t, err)

	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, first.Level, second.Level)
	assert.Len(t, second.QAFeedback, len(first.QAFeedback))
	assert.Equal(t, model.SummaryStatusReady, second.Status)
	assert.Equal(t, 2, f.gemini.calls)
}

func TestSummaryBuild_FeedbackCountMismatchIsNotFatal(t *testing.T) {
	f := setupSummary(t, `{
	  "overallScore": 90, "level": "Advanced", "strengths": [], "improvements": [], "tips": [],
	  "qa": [{"id": "q1", "questionText": "question q1", "feedback": "good", "score": 90}]
	}`, nil)
	f.seedSession(t)

	require.NoError(t, f.svc.Build(context.Background(), "s1"))

	summary, err := f.summaryRepo.FindBySession("s1")
	require.NoError(t, err)
	assert.Equal(t, model.SummaryStatusReady, summary.Status)
	// One entry per QA record even when the model dropped one.
	require.Len(t, summary.QAFeedback, 2)
	assert.Equal(t, "good", summary.QAFeedback[0].Feedback)
	assert.Empty(t, summary.QAFeedback[1].Feedback)
	assert.Equal(t, "question q2", summary.QAFeedback[1].QuestionText)
}

func TestSummaryBuild_NoQARecordsFails(t *testing.T) {
	f := setupSummary(t, validModelResponse, nil)
	require.NoError(t, f.db.Create(testutil.NewSession("s1", "owner-1", 2)).Error)

	err := f.svc.Build(context.Background(), "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no QA records")

	summary, findErr := f.summaryRepo.FindBySession("s1")
	require.NoError(t, findErr)
	assert.Equal(t, model.SummaryStatusError, summary.Status)
	assert.NotEmpty(t, summary.ErrorMessage)
	assert.Equal(t, 0, f.gemini.calls)
}

func TestSummaryBuild_UnknownSessionFails(t *testing.T) {
	f := setupSummary(t, validModelResponse, nil)

	err := f.svc.Build(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")

	summary, findErr := f.summaryRepo.FindBySession("missing")
	require.NoError(t, findErr)
	assert.Equal(t, model.SummaryStatusError, summary.Status)
}

func TestSummaryBuild_MalformedModelOutputFails(t *testing.T) {
	f := setupSummary(t, "this is not json", nil)
	f.seedSession(t)

	err := f.svc.Build(context.Background(), "s1")
	require.Error(t, err)

	summary, findErr := f.summaryRepo.FindBySession("s1")
	require.NoError(t, findErr)
	assert.Equal(t, model.SummaryStatusError, summary.Status)
	assert.Contains(t, summary.ErrorMessage, "malformed")

	// A retry with fixed output recovers.
	f.gemini.response = validModelResponse
	require.NoError(t, f.svc.Build(context.Background(), "s1"))
	summary, findErr = f.summaryRepo.FindBySession("s1")
	require.NoError(t, findErr)
	assert.Equal(t, model.SummaryStatusReady, summary.Status)
	assert.Empty(t, summary.ErrorMessage)
}

func TestSummaryBuild_GenerationErrorFails(t *testing.T) {
	f := setupSummary(t, "", errors.New("model timeout"))
	f.seedSession(t)

	err := f.svc.Build(context.Background(), "s1")
	require.Error(t, err)

	summary, findErr := f.summaryRepo.FindBySession("s1")
	require.NoError(t, findErr)
	assert.Equal(t, model.SummaryStatusError, summary.Status)
	assert.Contains(t, f.progress.statuses, model.SummaryStatusError)
}

const proModelResponse = `{
  "overallScore": 95,
  "level": "Advanced",
  "strengths": ["good JD alignment"],
  "improvements": [],
  "tips": [],
  "qa": [
    {"id": "q1", "questionText": "question q1", "answerSummary": "cut latency with Redis", "modelAnswer": "a model answer", "feedback": "strong", "score": 90, "tags": ["Redis"], "jdKeywordCoverage": true, "metricSpecificity": true}
  ]
}`

func seedProSession(t *testing.T, f *summaryFixture, companyID string) {
	t.Helper()
	session := testutil.NewSession("s1", "owner-1", 1)
	session.CompanyID = companyID
	session.IsPro = true
	session.JDKeywords = model.StringList{"Redis"}
	require.NoError(t, f.db.Create(session).Error)
	require.NoError(t, f.db.Create(testutil.NewProcessedQA("s1", "q1", "Redis 캐시로 응답 시간을 40% 줄였습니다")).Error)
}

func TestSummaryBuild_ProModeScoresAgainstJDKeywords(t *testing.T) {
	f := setupSummary(t, proModelResponse, nil)
	seedProSession(t, f, "generic")

	require.NoError(t, f.svc.Build(context.Background(), "s1"))

	require.NotNil(t, f.gemini.lastReq)
	assert.True(t, f.gemini.lastReq.IsPro)
	assert.Equal(t, []string{"Redis"}, f.gemini.lastReq.JDKeywords)

	summary, err := f.summaryRepo.FindBySession("s1")
	require.NoError(t, err)
	require.Len(t, summary.QAFeedback, 1)
	// Default weights: dimension mean 71.07, +5 keyword coverage,
	// +3 metric specificity.
	assert.Equal(t, 79, summary.QAFeedback[0].Score)
	assert.True(t, summary.QAFeedback[0].JDKeywordCoverage)
	assert.True(t, summary.QAFeedback[0].MetricSpecificity)
	assert.Equal(t, 79, summary.OverallScore)
	assert.Equal(t, model.LevelIntermediate, summary.Level)
}

func TestSummaryBuild_CompanyWeightOverrideChangesScore(t *testing.T) {
	cfg := testConfig()
	cfg.RubricWeights = map[string]config.RubricWeights{
		"acme": {
			Communication:  1,
			Structure:      1,
			ProblemSolving: 1,
			Leadership:     0.5,
			Quantification: 5,
			CultureFit:     0.5,
		},
	}
	f := setupSummaryWithConfig(t, proModelResponse, nil, cfg)
	seedProSession(t, f, "acme")

	require.NoError(t, f.svc.Build(context.Background(), "s1"))

	summary, err := f.summaryRepo.FindBySession("s1")
	require.NoError(t, err)
	require.Len(t, summary.QAFeedback, 1)
	// Heavier quantification weight lifts this quantified answer above the
	// default-weight result of 79.
	assert.Equal(t, 82, summary.QAFeedback[0].Score)
	assert.Equal(t, 82, summary.OverallScore)
	assert.Equal(t, model.LevelAdvanced, summary.Level)
}

func TestSummaryBuild_SkippedQuestionsIncluded(t *testing.T) {
	f := setupSummary(t, validModelResponse, nil)
	require.NoError(t, f.db.Create(testutil.NewSession("s1", "owner-1", 2)).Error)
	require.NoError(t, f.db.Create(testutil.NewProcessedQA("s1", "q1", "성능을 30% 개선했습니다")).Error)
	require.NoError(t, f.qaRepo.UpsertSkipped(&model.QuestionAnswer{
		SessionID: "s1", QuestionID: "q2", OwnerID: "owner-1", QuestionText: "question q2",
	}))

	require.NoError(t, f.svc.Build(context.Background(), "s1"))

	summary, err := f.summaryRepo.FindBySession("s1")
	require.NoError(t, err)
	require.Len(t, summary.QAFeedback, 2)
	// The skipped question has no transcript, so the rubric scores it zero.
	assert.Equal(t, 0, summary.QAFeedback[1].Score)
}
