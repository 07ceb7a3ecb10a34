package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/chat-widget/backend/internal/bridge"
	"github.com/zhouzirui/chat-widget/backend/internal/config"
	bridgeHandler "github.com/zhouzirui/chat-widget/backend/internal/handler/bridge"
	"github.com/zhouzirui/chat-widget/backend/internal/handler/chat"
	middlewarePkg "github.com/zhouzirui/chat-widget/backend/internal/middleware"
	"github.com/zhouzirui/chat-widget/backend/internal/service/widget"
	"github.com/zhouzirui/chat-widget/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the widget session and parent bridge.
func NewRouter(session *widget.Session, hub *bridge.Hub, env config.WidgetEnv) http.Handler {
	r := chi.NewRouter()

	allow := session.Config().AllowsOrigin

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allow))

	chatHandler := chat.New(session, env)
	parentHandler := bridgeHandler.New(hub)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
	})

	r.Route("/bridge", func(b chi.Router) {
		parentHandler.RegisterRoutes(b)
	})

	return r
}
