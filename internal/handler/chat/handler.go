package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/chat-widget/backend/internal/config"
	"github.com/zhouzirui/chat-widget/backend/internal/model/chat"
	chatService "github.com/zhouzirui/chat-widget/backend/internal/service/chat"
	"github.com/zhouzirui/chat-widget/backend/internal/service/widget"
	"github.com/zhouzirui/chat-widget/backend/pkg/utils"
)

// Handler 聊天组件的HTTP处理器
type Handler struct {
	session *widget.Session
	env     config.WidgetEnv
}

// New 创建聊天处理器
func New(session *widget.Session, env config.WidgetEnv) *Handler {
	return &Handler{
		session: session,
		env:     env,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/config", h.handleConfig)
	r.Get("/transcript", h.handleTranscript)
	r.Post("/messages", h.handleSend)
	r.Post("/messages/{messageID}/retry", h.handleRetry)
	r.Post("/feedback", h.handleFeedback)
	r.Post("/input", h.handleInput)
	r.Post("/open", h.handleOpen)
	r.Post("/close", h.handleClose)
	r.Post("/conversation/reset", h.handleReset)
}

type transcriptResponse struct {
	SessionID string           `json:"sessionId"`
	Messages  chat.Transcript  `json:"messages"`
	Feedback  chat.FeedbackMap `json:"feedback"`
	State     widget.State     `json:"state"`
}

type sendResponse struct {
	Attempt  *widget.Attempt `json:"attempt,omitempty"`
	Messages chat.Transcript `json:"messages"`
	Error    string          `json:"error,omitempty"`
}

// handleConfig 返回会话配置，查询参数只覆盖展示字段
func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.session.Config().WithPresentation(r.URL.Query(), h.env))
}

// handleTranscript 返回当前会话记录
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.session.SessionID(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "session unavailable")
		return
	}

	store := h.session.Store()
	utils.RespondJSON(w, http.StatusOK, transcriptResponse{
		SessionID: sessionID,
		Messages:  store.Transcript(),
		Feedback:  store.Feedback(),
		State:     h.session.State(),
	})
}

// handleSend 发送用户消息
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	attempt, err := h.session.Send(r.Context(), payload.Text)
	h.respondAttempt(w, attempt, err)
}

// handleRetry 重试失败的消息
func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")
	attempt, err := h.session.Retry(r.Context(), messageID)
	h.respondAttempt(w, attempt, err)
}

// handleFeedback 记录点赞或点踩
func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MessageID string    `json:"messageId"`
		Type      chat.Vote `json:"type"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.session.SendFeedback(r.Context(), payload.MessageID, payload.Type); err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	store := h.session.Store()
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"feedback": store.Feedback(),
		"messages": store.Transcript(),
	})
}

// handleInput 记录输入变化并驱动 typing 事件
func (h *Handler) handleInput(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.session.Input(payload.Text)
	utils.RespondJSON(w, http.StatusAccepted, h.session.State())
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	h.session.Open()
	utils.RespondJSON(w, http.StatusOK, h.session.State())
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	h.session.Close()
	utils.RespondJSON(w, http.StatusOK, h.session.State())
}

// handleReset 开启新对话
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.session.NewConversation(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to reset conversation")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"sessionId": sessionID})
}

func (h *Handler) respondAttempt(w http.ResponseWriter, attempt *widget.Attempt, err error) {
	resp := sendResponse{Attempt: attempt, Messages: h.session.Store().Transcript()}
	if err != nil {
		resp.Error = err.Error()
		utils.RespondJSON(w, statusFor(err), resp)
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, widget.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, widget.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, widget.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, widget.ErrInvalidInput),
		errors.Is(err, widget.ErrInvalidVote),
		errors.Is(err, widget.ErrNotRetryable),
		errors.Is(err, widget.ErrNotVotable):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrMessageNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
