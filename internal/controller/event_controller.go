package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepview/prepview/internal/dto"
	"github.com/prepview/prepview/internal/queue"
	"github.com/rs/zerolog/log"
)

// EventController receives storage object-created callbacks and relays them
// to the transcription queue. Storage providers deliver at-least-once; the
// worker is idempotent, so duplicates are harmless.
type EventController struct {
	audioEvents *queue.AudioEvents
}

func NewEventController(audioEvents *queue.AudioEvents) *EventController {
	return &EventController{audioEvents: audioEvents}
}

// ReceiveAudioEvent godoc
// @Summary Receive a storage object-created event
// @Tags Events
// @Accept json
// @Produce json
// @Param event body dto.AudioEventRequest true "Object-created event"
// @Success 202 "Accepted"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /events/audio [post]
func (ctrl *EventController) ReceiveAudioEvent(ctx *gin.Context) {
	var req dto.AudioEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	msg := &queue.AudioEventMessage{
		Bucket:      req.Bucket,
		Path:        req.Path,
		ContentType: req.ContentType,
		Metadata:    req.Metadata,
	}
	if err := ctrl.audioEvents.Push(ctx.Request.Context(), msg); err != nil {
		log.Error().Err(err).Str("path", req.Path).Msg("Failed to enqueue audio event")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	ctx.Status(http.StatusAccepted)
}
