package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qrate/cache"
	"qrate/config"
	"qrate/core/live"
	"qrate/core/session"
	"qrate/core/vibegate"
	"qrate/db"
	"qrate/logger"
	"qrate/repository"
	"qrate/storage"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Start 初始化依赖并启动 HTTP 服务
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogOutput,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})
	defer logger.Sync()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 数据库
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("连接数据库失败", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(); err != nil {
		logger.Fatal("数据库迁移失败", logger.ErrorField(err))
	}

	// Redis
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("连接Redis失败", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	// 对象存储（默认封面素材）：不可用时降级为无封面，不阻塞启动
	var coverURL func(index int) string
	if artwork, err := storage.NewArtworkStore(cfg); err != nil {
		logger.Warn("对象存储不可用，封面功能降级", logger.ErrorField(err))
	} else {
		checkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := artwork.EnsureCover(checkCtx, 0); err != nil {
			logger.Warn("默认封面素材缺失", logger.ErrorField(err))
		}
		cancel()
		coverURL = artwork.CoverURL
	}

	// 氛围闸门（策略文件热加载）
	gate, err := vibegate.NewGateFromFile(cfg.GatePolicyPath)
	if err != nil {
		logger.Fatal("初始化氛围闸门失败", logger.ErrorField(err))
	}
	defer gate.Close()

	// WebSocket 推送中心
	hub := live.NewHub()
	go hub.Run()
	defer hub.Stop()

	// 会话管理器
	eventRepo := repository.NewGormEventRepository(db.GormDB)
	contribRepo := repository.NewGormContributionRepository(db.GormDB)
	dashCache := cache.NewDashboardCache(db.RedisClient, cfg.DashboardTTL)
	manager := session.NewManager(cfg, eventRepo, contribRepo, gate, hub, dashCache, coverURL)
	defer manager.Shutdown()

	// 处理器
	eventHandler := NewEventHandler(manager)
	djHandler := NewDJHandler(manager)
	wsHandler := NewWSHandler(manager, hub, cfg.Environment != "production")

	router := mux.NewRouter()

	// CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 活动与来宾
	router.HandleFunc("/api/events", eventHandler.CreateEventHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/events/{id}", eventHandler.GetEventHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/events/{id}", eventHandler.CloseEventHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/events/{id}/join", eventHandler.JoinEventHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/events/{id}/location", eventHandler.UpdateLocationHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/events/{id}/submission", eventHandler.SubmitMusicHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/events/{id}/submission/{userId}", eventHandler.GetSubmissionHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/events/{id}/guests", eventHandler.ListGuestsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/events/{id}/guests/{userId}", eventHandler.RemoveGuestHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/events/{id}/pool", eventHandler.GetPoolHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/events/{id}/stats", eventHandler.GetStatsHandler).Methods(http.MethodGet)

	// DJ 面板
	router.HandleFunc("/api/events/{id}/dj/state", djHandler.GetStateHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/events/{id}/dj/cue", djHandler.TapToCueHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/events/{id}/dj/queue", djHandler.AddToQueueHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/events/{id}/dj/queue/{trackId}", djHandler.RemoveFromQueueHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/events/{id}/dj/queue/{trackId}/position", djHandler.ReorderQueueHandler).Methods(http.MethodPut)

	// 面板实时推送
	router.HandleFunc("/ws/events/{id}", wsHandler.ServeWS).Methods(http.MethodGet)

	// 运维端点
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("服务启动",
			logger.String("addr", server.Addr),
			logger.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务启动失败", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("收到退出信号，开始优雅关闭")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("服务强制关闭", logger.ErrorField(err))
	}

	logger.Info("服务已停止")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
