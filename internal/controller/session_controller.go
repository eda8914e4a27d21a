package controller

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/prepview/prepview/internal/dto"
	"github.com/prepview/prepview/internal/model"
	"github.com/prepview/prepview/internal/repository"
	"github.com/prepview/prepview/internal/service"
	"github.com/rs/zerolog/log"
)

type SessionController struct {
	ingestionSvc service.IngestionService
	jdSvc        service.JDService
	keywordSvc   service.KeywordService
	sessionRepo  repository.SessionRepository
	qaRepo       repository.QARepository
}

func NewSessionController(
	ingestionSvc service.IngestionService,
	jdSvc service.JDService,
	keywordSvc service.KeywordService,
	sessionRepo repository.SessionRepository,
	qaRepo repository.QARepository,
) *SessionController {
	return &SessionController{
		ingestionSvc: ingestionSvc,
		jdSvc:        jdSvc,
		keywordSvc:   keywordSvc,
		sessionRepo:  sessionRepo,
		qaRepo:       qaRepo,
	}
}

// CreateSession godoc
// @Summary Create a practice session
// @Description Creates a session with a client-generated id. Safe to retry: re-creating an existing session merges mutable fields.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param session body dto.CreateSessionRequest true "Session to create"
// @Success 201 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /sessions [post]
func (ctrl *SessionController) CreateSession(ctx *gin.Context) {
	var req dto.CreateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	session := &model.Session{
		ID:                req.SessionID,
		OwnerID:           req.OwnerID,
		Role:              req.Role,
		CompanyID:         req.CompanyID,
		ExpectedQuestions: req.ExpectedQuestions,
		IsPro:             req.IsPro,
	}
	if err := ctrl.ingestionSvc.CreateSession(ctx.Request.Context(), session); err != nil {
		log.Error().Err(err).Str("sessionId", req.SessionID).Msg("CreateSession failed")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}

	var resp dto.SessionResponse
	copier.Copy(&resp, session)
	ctx.JSON(http.StatusCreated, resp)
}

// GetSession godoc
// @Summary Get a session with its per-question progress
// @Tags Sessions
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.SessionDetailResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /sessions/{session_id} [get]
func (ctrl *SessionController) GetSession(ctx *gin.Context) {
	sessionID := ctx.Param("session_id")

	session, err := ctrl.sessionRepo.FindByID(sessionID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "session not found"})
		return
	}
	qas, err := ctrl.qaRepo.FindBySession(sessionID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}

	var resp dto.SessionDetailResponse
	copier.Copy(&resp.Session, session)
	copier.Copy(&resp.QA, qas)
	ctx.JSON(http.StatusOK, resp)
}

// SubmitAnswer godoc
// @Summary Submit a recorded answer
// @Description Uploads the audio, records the QA row and enqueues transcription. Retrying the same question overwrites the recording.
// @Tags Sessions
// @Accept mpfd
// @Produce json
// @Param session_id path string true "Session ID"
// @Param question_id path string true "Question ID (q1..qN)"
// @Param owner_id formData string true "Owner ID"
// @Param question_text formData string false "Question text"
// @Param language formData string false "Recognition language (e.g. ko-KR)"
// @Param audio formData file true "Recorded audio"
// @Success 200 {object} dto.SubmitAnswerResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /sessions/{session_id}/questions/{question_id}/answers [post]
func (ctrl *SessionController) SubmitAnswer(ctx *gin.Context) {
	var form dto.SubmitAnswerForm
	if err := ctx.ShouldBind(&form); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	fileHeader, err := ctx.FormFile("audio")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "audio file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "could not open audio file"})
		return
	}
	defer file.Close()
	audio, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "could not read audio file"})
		return
	}

	result, err := ctrl.ingestionSvc.SubmitAnswer(ctx.Request.Context(), &service.SubmitAnswerInput{
		OwnerID:      form.OwnerID,
		SessionID:    ctx.Param("session_id"),
		QuestionID:   ctx.Param("question_id"),
		QuestionText: form.QuestionText,
		Language:     form.Language,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		Audio:        audio,
	})
	if err != nil {
		log.Error().Err(err).Str("sessionId", ctx.Param("session_id")).Msg("SubmitAnswer failed")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, dto.SubmitAnswerResponse{Path: result.Path, URL: result.URL})
}

// SkipQuestion godoc
// @Summary Record a skipped question
// @Tags Sessions
// @Accept json
// @Produce json
// @Param session_id path string true "Session ID"
// @Param question_id path string true "Question ID (q1..qN)"
// @Param skip body dto.SkipQuestionRequest true "Skip payload"
// @Success 204 "No Content"
// @Failure 400 {object} dto.ErrorResponse
// @Router /sessions/{session_id}/questions/{question_id}/skip [post]
func (ctrl *SessionController) SkipQuestion(ctx *gin.Context) {
	var req dto.SkipQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if err := ctrl.ingestionSvc.SkipQuestion(ctx.Request.Context(), req.OwnerID, ctx.Param("session_id"), ctx.Param("question_id"), req.QuestionText); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

// ParseJD godoc
// @Summary Attach job-description keywords to a session
// @Description Accepts either a URL (scraped and analyzed by the model) or raw text (lexical extraction). Upgrades the session to pro evaluation.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param session_id path string true "Session ID"
// @Param jd body dto.JDParseRequest true "JD URL or text"
// @Success 200 {object} dto.JDParseResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /sessions/{session_id}/jd [post]
func (ctrl *SessionController) ParseJD(ctx *gin.Context) {
	var req dto.JDParseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	sessionID := ctx.Param("session_id")

	var keywords []string
	var err error
	switch {
	case req.URL != "":
		keywords, err = ctrl.jdSvc.ParseFromURL(ctx.Request.Context(), sessionID, req.URL)
	case req.Text != "":
		keywords, err = ctrl.jdSvc.ExtractFromText(ctx.Request.Context(), sessionID, req.Text, req.Role)
	default:
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "either url or text is required"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("ParseJD failed")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, dto.JDParseResponse{SessionID: sessionID, Keywords: keywords})
}

// ExtractTags godoc
// @Summary Extract display tags for a question
// @Tags Tags
// @Accept json
// @Produce json
// @Param request body dto.TagExtractRequest true "Question and scoring context"
// @Success 200 {object} dto.TagExtractResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /tags/extract [post]
func (ctrl *SessionController) ExtractTags(ctx *gin.Context) {
	var req dto.TagExtractRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	tags := ctrl.keywordSvc.ExtractTags(req.Question, service.TagSettings{Role: req.Role, JDKeywords: req.JDKeywords}, req.TopK)
	ctx.JSON(http.StatusOK, dto.TagExtractResponse{Tags: tags})
}
