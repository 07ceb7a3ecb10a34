package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/chat-widget/backend/internal/config"
	webhookHandler "github.com/zhouzirui/chat-widget/backend/internal/handler/webhook"
	"github.com/zhouzirui/chat-widget/backend/internal/service/assistant"
	"github.com/zhouzirui/chat-widget/backend/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	addr := flag.String("addr", ":8090", "监听地址")
	systemPrompt := flag.String("prompt", "", "自定义系统提示词，留空使用默认值")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var chatModel model.ChatModel
	if cfg.AI.Enabled() {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("[WARN] Ark 模型初始化失败，改用回声模式: %v", err)
			chatModel = nil
		}
	} else {
		log.Println("Ark 凭证未配置，使用回声模式")
	}

	history := storage.NewMemoryScope()
	svc, err := assistant.NewService(ctx, chatModel, history, *systemPrompt)
	if err != nil {
		log.Fatalf("assistant 初始化失败: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	webhookHandler.New(svc).RegisterRoutes(r)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("webhook stub listening on %s (echo=%v)", *addr, svc.Echo())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
