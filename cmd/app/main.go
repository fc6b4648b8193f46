package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HappilyMart/deal-service/internal/config"
	"github.com/HappilyMart/deal-service/internal/handler"
	"github.com/HappilyMart/deal-service/internal/rabbitmq"
	"github.com/HappilyMart/deal-service/internal/repository"
	"github.com/HappilyMart/deal-service/internal/repository/postgres"
	"github.com/HappilyMart/deal-service/internal/server"
	"github.com/HappilyMart/deal-service/internal/service"
	"github.com/HappilyMart/deal-service/internal/ws"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, _ := zap.NewProduction()

	if err := loadEnv(); err != nil {
		logger.Sugar().Panicf("failed to load environment variables: %s", err.Error())
	}

	if err := initConfig(); err != nil {
		logger.Sugar().Panicf("failed to initialize yaml config: %s", err.Error())
	}

	dbConfig := config.DBConfig{
		Username: os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Host:     os.Getenv("POSTGRES_HOST"),
		Port:     os.Getenv("POSTGRES_PORT"),
		DBName:   os.Getenv("POSTGRES_DATABASE"),
		SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
	}
	db, err := postgres.DB(ctx, dbConfig)
	if err != nil {
		logger.Sugar().Panicf("failed to connect to postgres: %s", err.Error())
	}
	if err := db.Ping(ctx); err != nil {
		logger.Sugar().Panicf("failed to ping postgres: %s", err.Error())
	}
	logger.Info("Successfully connected to PostgreSQL")

	redisOptions := &redis.Options{
		Addr: os.Getenv("REDIS_ADDR"),
	}
	rdb := redis.NewClient(redisOptions)
	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		logger.Sugar().Panicf("failed to ping redis: %s", err.Error())
	}
	logger.Sugar().Infof("Successfully connected to Redis: %s", pong)

	mq, err := rabbitmq.New(os.Getenv("RABBITMQ_CONN_STRING"))
	if err != nil {
		logger.Sugar().Panicf("failed to connect to rabbitmq: %s", err.Error())
	}
	logger.Info("Successfully connected to RabbitMQ")

	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	repos := repository.New(db, rdb)
	services := service.New(logger, repos, mq, hub, time.Now)
	handlers := handler.New(services, hub)

	srv := server.New()
	serverConfig := config.ServerConfig{
		Port:           viper.GetString("app.port"),
		Handler:        handlers.InitRoutes(),
		MaxHeaderBytes: 1 << 20,
		ReadTimeout:    time.Second * 10,
		WriteTimeout:   time.Second * 10,
	}
	go func() {
		if err := srv.Run(serverConfig); err != nil {
			logger.Sugar().Panicf("failed to run http server: %s", err.Error())
		}
	}()

	services.StartConsumeAll(ctx)

	logger.Info("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Server shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("failed to shut down http server: %s", err.Error())
	}
	if err := mq.Close(); err != nil {
		logger.Sugar().Errorf("failed to close rabbitmq connection: %s", err.Error())
	}
	db.Close()
}

func loadEnv() error {
	return godotenv.Load()
}

func initConfig() error {
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	viper.SetConfigName("app")
	return viper.ReadInConfig()
}
