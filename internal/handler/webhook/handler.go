package webhook

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/chat-widget/backend/internal/model/chat"
	"github.com/zhouzirui/chat-widget/backend/internal/service/assistant"
	"github.com/zhouzirui/chat-widget/backend/pkg/utils"
)

// Handler 本地 webhook 替身，按 action 分发消息与反馈
type Handler struct {
	assistant *assistant.Service
}

// New 创建 webhook 处理器
func New(svc *assistant.Service) *Handler {
	return &Handler{assistant: svc}
}

// RegisterRoutes 注册 webhook 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.handleWebhook)
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := utils.DecodeJSON(r, &raw); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var envelope struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch envelope.Action {
	case chat.ActionSendMessage:
		var req chat.SendRequest
		if err := json.Unmarshal(raw, &req); err != nil || strings.TrimSpace(req.ChatInput) == "" {
			utils.RespondError(w, http.StatusBadRequest, "chatInput is required")
			return
		}
		reply, err := h.assistant.Reply(r.Context(), req.SessionID, req.ChatInput)
		if err != nil {
			utils.RespondError(w, http.StatusBadGateway, "failed to generate reply")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{"output": reply})
	case chat.ActionFeedback:
		var req chat.FeedbackRequest
		if err := json.Unmarshal(raw, &req); err != nil || !req.FeedbackType.Valid() {
			utils.RespondError(w, http.StatusBadRequest, "invalid feedback")
			return
		}
		h.assistant.RecordFeedback(req)
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		utils.RespondError(w, http.StatusBadRequest, "unknown action")
	}
}
