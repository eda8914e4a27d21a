package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/prepview/prepview/internal/dto"
	"github.com/prepview/prepview/internal/repository"
	"github.com/prepview/prepview/internal/service"
	"github.com/rs/zerolog/log"
)

type SummaryController struct {
	summarySvc  service.SummaryService
	summaryRepo repository.SummaryRepository
}

func NewSummaryController(summarySvc service.SummaryService, summaryRepo repository.SummaryRepository) *SummaryController {
	return &SummaryController{summarySvc: summarySvc, summaryRepo: summaryRepo}
}

// BuildSummary godoc
// @Summary Build (or rebuild) the session summary
// @Description Runs the summary build synchronously. Safe to call repeatedly: each build fully replaces the previous payload.
// @Tags Summaries
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.BuildSummaryResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /sessions/{session_id}/summary [post]
func (ctrl *SummaryController) BuildSummary(ctx *gin.Context) {
	sessionID := ctx.Param("session_id")
	if sessionID == "" {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "sessionId is required"})
		return
	}

	if err := ctrl.summarySvc.Build(ctx.Request.Context(), sessionID); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("BuildSummary failed")
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "no QA records") {
			status = http.StatusBadRequest
		}
		ctx.JSON(status, dto.ErrorResponse{Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, dto.BuildSummaryResponse{Success: true, SessionID: sessionID})
}

// GetSummary godoc
// @Summary Read the session summary
// @Description Returns the summary record including its current status (pending, processing, ready or error).
// @Tags Summaries
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.SummaryResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /sessions/{session_id}/summary [get]
func (ctrl *SummaryController) GetSummary(ctx *gin.Context) {
	sessionID := ctx.Param("session_id")

	summary, err := ctrl.summaryRepo.FindBySession(sessionID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "summary not found"})
		return
	}

	var resp dto.SummaryResponse
	copier.Copy(&resp, summary)
	resp.QA = make([]dto.QAFeedbackResponse, 0, len(summary.QAFeedback))
	for _, fb := range summary.QAFeedback {
		var entry dto.QAFeedbackResponse
		copier.Copy(&entry, fb)
		resp.QA = append(resp.QA, entry)
	}
	ctx.JSON(http.StatusOK, resp)
}
