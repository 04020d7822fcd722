package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/pochaneco/ai-Knowledge-api/internal/config"
	"github.com/pochaneco/ai-Knowledge-api/internal/handler"
	"github.com/pochaneco/ai-Knowledge-api/internal/mailer"
	"github.com/pochaneco/ai-Knowledge-api/internal/model"
	"github.com/pochaneco/ai-Knowledge-api/internal/ratelimit"
	"github.com/pochaneco/ai-Knowledge-api/internal/router"
	"github.com/pochaneco/ai-Knowledge-api/internal/service"
	"github.com/pochaneco/ai-Knowledge-api/pkg/token"
)

func main() {
	// Load config
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.ProjectMember{},
		&model.ProjectInvitation{},
		&model.KnowledgeItem{},
		&model.SearchLog{},
	); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	// Redis (rate limiting)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	loginLimiter := ratelimit.New(rdb, "login", 10, time.Minute)
	mailLimiter := ratelimit.New(rdb, "authmail", 5, time.Minute)

	// Mailer
	var m mailer.Mailer
	if cfg.Mail.Enabled {
		m = mailer.NewSMTPMailer(cfg.Mail)
	} else {
		m = mailer.Noop{}
	}

	// Signed tokens (verification, password reset)
	tokens := token.New(cfg.Token.Secret)

	// Services
	authService := service.NewAuthService(db, tokens, m, service.AuthOptions{
		JWTSecret:   cfg.JWT.Secret,
		JWTExpire:   cfg.JWT.ExpireHours,
		BaseURL:     cfg.Server.BaseURL,
		TokenMaxAge: cfg.Token.MaxAge(),
		AutoVerify:  cfg.Token.AutoVerify,
	})
	projectService := service.NewProjectService(db, m, service.ProjectOptions{
		BaseURL:       cfg.Server.BaseURL,
		InvitationTTL: cfg.Token.InvitationTTL(),
	})
	knowledgeService := service.NewKnowledgeService(db)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, loginLimiter, mailLimiter)
	projectHandler := handler.NewProjectHandler(projectService)
	knowledgeHandler := handler.NewKnowledgeHandler(knowledgeService, projectService)

	// Gin engine
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	router.Setup(r, router.Deps{
		DB:               db,
		JWTSecret:        cfg.JWT.Secret,
		AuthHandler:      authHandler,
		ProjectHandler:   projectHandler,
		KnowledgeHandler: knowledgeHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server run: %v", err)
	}
}
