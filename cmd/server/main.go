// Package main 是应用程序的入口点。
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	"tutor-smart-go/internal/classifier"
	"tutor-smart-go/internal/config"
	"tutor-smart-go/internal/handler"
	"tutor-smart-go/internal/middleware"
	"tutor-smart-go/internal/model"
	"tutor-smart-go/internal/pipeline"
	"tutor-smart-go/internal/repository"
	"tutor-smart-go/internal/service"
	"tutor-smart-go/pkg/database"
	"tutor-smart-go/pkg/kafka"
	"tutor-smart-go/pkg/llm"
	"tutor-smart-go/pkg/log"
	"tutor-smart-go/pkg/storage"
	"tutor-smart-go/pkg/tika"
	"tutor-smart-go/pkg/token"

	"github.com/gin-gonic/gin"
)

type handlers struct {
	user         *handler.UserHandler
	auth         *handler.AuthHandler
	assistant    *handler.AssistantHandler
	submission   *handler.SubmissionHandler
	class        *handler.ClassHandler
	conversation *handler.ConversationHandler
	chat         *handler.ChatHandler
}

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 初始化配置与日志
	config.Init(*configPath)
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// 2. 初始化数据库、Redis、MinIO 与 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN, cfg.Database.MySQL.AutoMigrate,
		&model.User{}, &model.Class{}, &model.Submission{})
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	bucket, err := storage.NewBucket(rootCtx, cfg.MinIO)
	if err != nil {
		log.Fatal("MinIO 初始化失败", err)
	}
	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	// 3. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	classRepo := repository.NewClassRepository(database.DB)
	submissionRepo := repository.NewSubmissionRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.RDB)
	tokenRepo := repository.NewTokenRepository(database.RDB)

	// 4. 初始化 Service。补全客户端进程内只创建一次，由所有组件共享
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	llmClient := llm.NewClient(cfg.LLM)
	assistantService := service.NewAssistantService(
		classifier.NewClassifier(llmClient),
		service.NewContextAssembler(userRepo, classRepo, cfg.LLM.Prompt.NoContextText),
		service.NewPromptComposer(cfg.LLM.Prompt),
		llmClient,
		conversationRepo,
		llm.ParamsFromConfig(cfg.LLM.Generation),
	)
	userService := service.NewUserService(userRepo, tokenRepo, jwtManager)
	classService := service.NewClassService(classRepo, userRepo)
	gradingService := service.NewGradingService(submissionRepo, producer, bucket)
	conversationService := service.NewConversationService(conversationRepo)

	if err := userService.EnsureAdmin(rootCtx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		log.Fatal("初始化管理员账号失败", err)
	}

	// 5. 启动后台批改消费者
	processor := pipeline.NewProcessor(assistantService, bucket, tika.NewClient(cfg.Tika), submissionRepo)
	var consumers sync.WaitGroup
	consumers.Add(1)
	go func() {
		defer consumers.Done()
		kafka.StartConsumer(rootCtx, cfg.Kafka, kafka.NewRedisAttemptCounter(database.RDB), processor)
	}()

	// 6. 注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	registerRoutes(r, userService, handlers{
		user:         handler.NewUserHandler(userService),
		auth:         handler.NewAuthHandler(userService),
		assistant:    handler.NewAssistantHandler(assistantService, cfg.LLM.RequestTimeout),
		submission:   handler.NewSubmissionHandler(gradingService),
		class:        handler.NewClassHandler(classService),
		conversation: handler.NewConversationHandler(conversationService),
		chat:         handler.NewChatHandler(assistantService, userService, cfg.LLM.RequestTimeout),
	})

	// 7. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	stopBackground()
	consumers.Wait()
	log.Info("服务已优雅关闭")
}

func registerRoutes(r *gin.Engine, userService service.UserService, h handlers) {
	authed := middleware.AuthMiddleware(userService)
	staff := middleware.RequireRoles(model.RoleTeacher, model.RoleAdmin)
	adminOnly := middleware.RequireRoles(model.RoleAdmin)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/auth/refreshToken", h.auth.RefreshToken)

		users := apiV1.Group("/users")
		{
			users.POST("/register", h.user.Register)
			users.POST("/login", h.user.Login)

			me := users.Group("/")
			me.Use(authed)
			{
				me.GET("/me", h.user.GetProfile)
				me.PUT("/me", h.user.UpdateProfile)
				me.POST("/logout", h.user.Logout)
				me.GET("/conversation", h.conversation.GetConversations)
				me.DELETE("/conversation", h.conversation.ResetConversation)
			}
		}

		assistant := apiV1.Group("/assistant", authed)
		{
			assistant.POST("/answer", h.assistant.Answer)
			assistant.POST("/ask", h.assistant.Ask)
		}

		grading := apiV1.Group("/grading", authed)
		{
			grading.POST("/writing", h.assistant.GradeWriting)
			grading.POST("/speaking", h.assistant.GradeSpeaking)
		}

		submissions := apiV1.Group("/submissions", authed)
		{
			submissions.POST("/writing", h.submission.SubmitWriting)
			submissions.POST("/speaking", h.submission.SubmitSpeaking)
			submissions.GET("", h.submission.ListSubmissions)
			submissions.GET("/:id", h.submission.GetSubmission)
		}

		classes := apiV1.Group("/classes", authed)
		{
			classes.GET("", h.class.ListMyClasses)
			classes.GET("/:id", h.class.GetClass)
			classes.POST("", staff, h.class.CreateClass)
			classes.POST("/:id/members", staff, h.class.AddMembers)
			classes.DELETE("/:id/members/:userId", staff, h.class.RemoveMember)
		}

		admin := apiV1.Group("/admin", authed, adminOnly)
		{
			admin.GET("/users/list", h.user.ListUsers)
			admin.PUT("/users/:id/role", h.user.SetRole)
		}

		apiV1.GET("/chat/websocket-token", authed, h.chat.GetWebsocketStopToken)
	}
	r.GET("/chat/:token", h.chat.Handle)
}
