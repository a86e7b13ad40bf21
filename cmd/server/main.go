package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-store/internal/auth"
	"github.com/iliyamo/online-store/internal/config"
	"github.com/iliyamo/online-store/internal/database"
	"github.com/iliyamo/online-store/internal/handler"
	"github.com/iliyamo/online-store/internal/queue"
	"github.com/iliyamo/online-store/internal/repository"
	"github.com/iliyamo/online-store/internal/router"
	"github.com/iliyamo/online-store/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env always wins
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil disables rate limiting and caching
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}

	accessTTL := time.Duration(cfg.AccessTTLMin) * time.Minute
	refreshTTL := time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour
	tokens := auth.NewTokenService(cfg.JWTSecret, accessTTL, refreshTTL, nil)

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	categories := repository.NewCategoryRepo(db)
	products := repository.NewProductRepo(db)
	reviews := repository.NewReviewRepo(db)

	authSvc := service.NewAuthService(users, sessions, tokens, cfg.BcryptCost, refreshTTL, nil)
	reviewSvc := service.NewReviewService(reviews, products, queue.NewPublisher(), nil)

	e := echo.New()
	router.Register(e, router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Categories: handler.NewCategoryHandler(categories),
		Products:   handler.NewProductHandler(products, categories),
		Reviews:    handler.NewReviewHandler(reviewSvc),
	}, tokens, rdb)

	// Background consumer mirrors review.created events into logs/review.log.
	go func() {
		if err := queue.StartReviewConsumer(); err != nil {
			log.Printf("review consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
