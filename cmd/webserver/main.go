package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"genfix"
)

func main() {
	v := genfix.NewViper()
	settings, err := genfix.LoadSettings(v, os.Getenv("GENFIX_CONFIG"))
	if err != nil {
		zap.NewExample().Fatal("Failed to load settings", zap.Error(err))
	}
	logger := genfix.NewLogger(settings.Verbose, settings.LogFile)
	defer logger.Sync()

	gateway, err := genfix.NewGateway(settings.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM gateway", zap.Error(err))
	}

	db, err := genfix.OpenDB(settings.Database.Driver, settings.Database.DSN)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.CreateTables(context.Background()); err != nil {
		logger.Fatal("Failed to create tables", zap.Error(err))
	}

	secret := []byte(settings.Server.SessionSecret)
	if len(secret) == 0 {
		logger.Warn("server.session_secret not set, using a random key; flashes will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
	}

	server, err := NewServer(db, gateway, settings, secret, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("addr", settings.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}
