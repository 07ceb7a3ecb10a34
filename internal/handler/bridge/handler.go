package bridge

import (
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/chat-widget/backend/internal/bridge"
)

// Handler 宿主页面通信通道的HTTP处理器
type Handler struct {
	hub *bridge.Hub
}

// New 创建通道处理器
func New(hub *bridge.Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes 注册 WebSocket 与 SSE 路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.hub.ServeWS)
	r.Get("/events", h.hub.ServeSSE)
}
