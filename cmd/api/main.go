package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/chat-widget/backend/internal/bridge"
	"github.com/zhouzirui/chat-widget/backend/internal/config"
	"github.com/zhouzirui/chat-widget/backend/internal/handler"
	"github.com/zhouzirui/chat-widget/backend/internal/service/chat"
	"github.com/zhouzirui/chat-widget/backend/internal/service/session"
	"github.com/zhouzirui/chat-widget/backend/internal/service/webhook"
	"github.com/zhouzirui/chat-widget/backend/internal/service/widget"
	"github.com/zhouzirui/chat-widget/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	scope, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to open %s storage: %v", cfg.Storage.Driver, err)
	}
	defer func() {
		if err := scope.Close(); err != nil {
			log.Printf("warning: failed to close storage: %v", err)
		}
	}()
	log.Printf("storage driver %s ready (namespace %q)", cfg.Storage.Driver, cfg.Storage.Namespace)

	widgetCfg := config.ResolveWidget(url.Values{}, cfg.Widget)

	sessions := session.NewManager(scope)
	chatService := chat.NewService(scope, sessions)

	var gateway widget.Gateway
	if widgetCfg.HasWebhook() {
		gateway = webhook.NewClient(widgetCfg.WebhookURL, &http.Client{Timeout: widget.RequestTimeout + 5*time.Second})
		log.Printf("webhook gateway configured: %s", widgetCfg.WebhookURL)
	} else {
		log.Println("WEBHOOK_URL 未配置，发送消息将提示配置缺失")
	}

	hub := bridge.NewHub(widgetCfg.AllowsOrigin, cfg.Widget.ForceFramed)
	parent := bridge.New(hub, widgetCfg.AllowedOrigins)

	sess := widget.NewSession(widget.Options{
		Config:           widgetCfg,
		Store:            chatService,
		Identity:         sessions,
		Gateway:          gateway,
		Bridge:           parent,
		SendCooldown:     cfg.Widget.SendCooldown,
		FeedbackCooldown: cfg.Widget.FeedbackCooldown,
	})
	hub.SetInbound(parent.Handle)
	parent.OnOpen(sess.Focus)
	sess.Start(ctx)

	router := handler.NewRouter(sess, hub, cfg.Widget)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("chat widget backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
