package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"lychee/internal/ai"
	"lychee/internal/ai/tools"
	"lychee/internal/config"
	"lychee/internal/handler"
	authHandler "lychee/internal/handler/auth"
	"lychee/internal/pkg/cache"
	"lychee/internal/pkg/docparse"
	"lychee/internal/pkg/jwt"
	"lychee/internal/pkg/mongodb"
	"lychee/internal/pkg/storagefactory"
	"lychee/internal/pkg/styleimage"
	"lychee/internal/pkg/weather"
	"lychee/internal/repository"
	authRepo "lychee/internal/repository/auth"
	"lychee/internal/server/middleware"
	"lychee/internal/service"
)

// Server HTTP 服务器
type Server struct {
	cfg      *config.Config
	engine   *gin.Engine
	mongo    *mongodb.Client
	redis    *cache.RedisCache
	aiClient *ai.Client
}

// New 创建服务器实例
func New(cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 初始化 MongoDB (必需，会话与消息的持久化依赖)
	mongoClient, err := mongodb.New(&cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
		log.Warn().Err(err).Msg("failed to ensure indexes")
	}

	// 初始化 Redis (可选)
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without it")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	// 初始化 AI 客户端
	ctx := context.Background()
	aiClient, err := ai.NewClient(ctx, &cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}
	log.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model).Msg("initialized AI client")

	srv := &Server{
		cfg:      cfg,
		engine:   engine,
		mongo:    mongoClient,
		redis:    redisCache,
		aiClient: aiClient,
	}

	// 设置路由
	if err := srv.setupRoutes(); err != nil {
		return nil, err
	}

	return srv, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() error {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	db := s.mongo.Database()

	// 数据访问层
	userRepo := authRepo.NewUserRepo(db)
	convRepo := repository.NewConversationRepo(db)
	msgRepo := repository.NewMessageRepo(db)
	docRepo := repository.NewDocumentRepo(db)
	suggRepo := repository.NewSuggestionRepo(db)

	// 对话工具集
	weatherClient := weather.NewClient(&s.cfg.Tools.Weather)
	styler, err := styleimage.New(&s.cfg.Tools.Style)
	if err != nil {
		return fmt.Errorf("failed to create style image client: %w", err)
	}
	extractor := docparse.NewClient(&s.cfg.Extract, s.aiClient)

	registry := tools.NewRegistry()
	registry.Register(tools.NewWeatherTool(weatherClient))
	registry.Register(tools.NewStyleImageTool(styler))
	registry.Register(tools.NewPDFAnswerTool(extractor))
	registry.Register(tools.NewCreateDocumentTool(s.aiClient, docRepo))
	registry.Register(tools.NewUpdateDocumentTool(s.aiClient, docRepo))
	registry.Register(tools.NewRequestSuggestionsTool(s.aiClient, docRepo, suggRepo))

	if err := s.aiClient.BindToolSet(registry); err != nil {
		return fmt.Errorf("failed to bind tools: %w", err)
	}

	// 认证
	jwtSecret := s.cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "default-secret-key-change-in-production"
		log.Warn().Msg("JWT secret not configured, using default (NOT SECURE for production)")
	}
	accessTokenExpiry := s.cfg.Auth.AccessTokenExpiry
	if accessTokenExpiry == 0 {
		accessTokenExpiry = 24 * time.Hour
	}
	jwtUtil := jwt.NewJWT(jwtSecret, accessTokenExpiry)

	// 业务服务
	authSvc := service.NewAuthService(userRepo, jwtSecret, accessTokenExpiry)
	convSvc := service.NewConversationService(convRepo, msgRepo, s.redis)
	turnSvc := service.NewTurnService(
		s.aiClient,
		func(selectedModel string) service.GenerationSession {
			return s.aiClient.NewSession(selectedModel, &s.cfg.Chat)
		},
		extractor,
		convRepo,
		msgRepo,
	)

	// 文件存储
	store, err := storagefactory.NewStorage(context.Background(), &s.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	// 处理器
	authHdl := authHandler.NewHandler(authSvc)
	chatHdl := handler.NewChatHandler(turnSvc)
	convHdl := handler.NewConversationHandler(convSvc)
	uploadHdl := handler.NewUploadHandler(store)

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		// 认证接口（公开）
		v1.POST("/auth/register", authHdl.Register)
		v1.POST("/auth/login", authHdl.Login)

		// 需要认证的接口
		authed := v1.Group("")
		authed.Use(middleware.Auth(jwtUtil))
		{
			authed.GET("/auth/me", authHdl.GetMe)

			authed.POST("/chat", chatHdl.Chat)

			authed.GET("/conversations", convHdl.List)
			authed.GET("/conversations/:id", convHdl.Get)
			authed.DELETE("/conversations/:id", convHdl.Delete)

			authed.POST("/files/upload", uploadHdl.Upload)
		}
	}

	return nil
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		// 关闭连接
		if s.mongo != nil {
			if err := s.mongo.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to close MongoDB connection")
			}
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}
		if s.aiClient != nil {
			if err := s.aiClient.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close AI client")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
