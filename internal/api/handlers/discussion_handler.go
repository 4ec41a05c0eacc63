package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/placementlab/gdroom/internal/models"
	"github.com/placementlab/gdroom/internal/services"
	"github.com/placementlab/gdroom/internal/utils"
)

type DiscussionHandler struct {
	svc services.DiscussionService
}

func NewDiscussionHandler(svc services.DiscussionService) *DiscussionHandler {
	return &DiscussionHandler{svc: svc}
}

type CreateSessionRequest struct {
	SessionID string `json:"session_id"`
}

type CreateSessionResponse struct {
	SessionID    string               `json:"session_id"`
	Status       string               `json:"status"`
	Topic        *string              `json:"topic"`
	StartTime    *string              `json:"start_time"`
	Participants []models.Participant `json:"participants"`
}

func (h *DiscussionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	// The body is optional; an empty POST creates a session with a fresh id.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, utils.E(utils.CodeInvalidArgument, "DiscussionHandler.Create", "invalid request body", err))
		return
	}

	snap, err := h.svc.Create(c.Request.Context(), req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateSessionResponse{
		SessionID:    snap.SessionID,
		Status:       snap.Status,
		Topic:        nil,
		StartTime:    nil,
		Participants: snap.Participants,
	})
}

type StartSessionResponse struct {
	Status       string `json:"status"`
	Topic        string `json:"topic"`
	AdminMessage string `json:"admin_message"`
	StartTime    string `json:"start_time"`
}

func (h *DiscussionHandler) Start(c *gin.Context) {
	sessionID := c.Param("session_id")

	res, err := h.svc.Start(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, StartSessionResponse{
		Status:       "started",
		Topic:        res.Topic,
		AdminMessage: res.AdminMessage,
		StartTime:    res.StartTime.Format(time.RFC3339),
	})
}

type SendMessageRequest struct {
	SessionID   string `json:"session_id" binding:"required"`
	Participant string `json:"participant" binding:"required"`
	Message     string `json:"message" binding:"required"`
	Timestamp   string `json:"timestamp"`
}

type SendMessageResponse struct {
	Status      string           `json:"status"`
	AIResponses []models.Message `json:"ai_responses"`
	ElapsedTime float64          `json:"elapsed_time"`
}

func (h *DiscussionHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "DiscussionHandler.SendMessage", "invalid request body", err))
		return
	}

	res, err := h.svc.SendMessage(c.Request.Context(), services.SendMessageInput{
		SessionID:   req.SessionID,
		Participant: req.Participant,
		Message:     req.Message,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SendMessageResponse{
		Status:      "success",
		AIResponses: res.Responses,
		ElapsedTime: res.ElapsedTime,
	})
}

type TickRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type TickResponse struct {
	Success bool           `json:"success"`
	Message models.Message `json:"message"`
}

func (h *DiscussionHandler) Tick(c *gin.Context) {
	var req TickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "DiscussionHandler.Tick", "invalid request body", err))
		return
	}

	msg, err := h.svc.Tick(c.Request.Context(), req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, TickResponse{Success: true, Message: *msg})
}

type InjectCandidatesResponse struct {
	Status       string               `json:"status"`
	Participants []models.Participant `json:"participants"`
}

func (h *DiscussionHandler) InjectCandidates(c *gin.Context) {
	sessionID := c.Param("session_id")

	participants, err := h.svc.InjectCandidates(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, InjectCandidatesResponse{
		Status:       "success",
		Participants: participants,
	})
}

type EndSessionResponse struct {
	Status       string                  `json:"status"`
	AdminClosing string                  `json:"admin_closing"`
	Evaluation   models.EvaluationReport `json:"evaluation"`
}

func (h *DiscussionHandler) End(c *gin.Context) {
	sessionID := c.Param("session_id")

	res, err := h.svc.End(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, EndSessionResponse{
		Status:       models.StatusCompleted,
		AdminClosing: res.AdminClosing,
		Evaluation:   res.Evaluation,
	})
}

type StatusResponse struct {
	SessionID    string               `json:"session_id"`
	Status       string               `json:"status"`
	Topic        *string              `json:"topic"`
	ElapsedTime  float64              `json:"elapsed_time"`
	Participants []models.Participant `json:"participants"`
	Messages     []models.Message     `json:"messages"`
}

func (h *DiscussionHandler) Status(c *gin.Context) {
	sessionID := c.Param("session_id")

	snap, err := h.svc.Status(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		SessionID:    snap.SessionID,
		Status:       snap.Status,
		Topic:        snap.Topic,
		ElapsedTime:  snap.ElapsedTime,
		Participants: snap.Participants,
		Messages:     snap.Messages,
	})
}

func (h *DiscussionHandler) Delete(c *gin.Context) {
	sessionID := c.Param("session_id")
	h.svc.Delete(c.Request.Context(), sessionID)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
