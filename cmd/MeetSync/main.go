package main

import (
	"context"
	"crypto/rsa"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-jwt/jwt/v4"
	migrate "github.com/rubenv/sql-migrate"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/meetsync/MeetSync/internal/rest"
	"github.com/meetsync/MeetSync/pkg/config"
	"github.com/meetsync/MeetSync/pkg/logger"
	"github.com/meetsync/MeetSync/pkg/notifier"
	"github.com/meetsync/MeetSync/pkg/pgstore"
	"github.com/meetsync/MeetSync/pkg/service"
)

func main() {
	log := logger.NewLogger()
	cfg, err := config.FromEnv()
	if err != nil {
		log.Panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store, err := pgstore.NewStore(ctx, log, cfg.PgDSN)
	if err != nil {
		log.Panic(err)
	}
	if err = store.Migrate(migrate.Up); err != nil {
		log.Panic(err)
	}

	targets := []service.Notifier{notifier.NewDummyNotifier(log)}
	if cfg.SMTPHost != "" {
		targets = append(targets, notifier.NewEmailNotifier(log, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom))
	}
	if cfg.TgToken != "" {
		bot, err := notifier.NewBot(cfg.TgToken)
		if err != nil {
			log.Panic(err)
		}
		targets = append(targets, notifier.NewTelegramNotifier(log, bot, cfg.TgChatID))
	}

	var publicKey *rsa.PublicKey
	if cfg.JWTPublicKeyPEM != "" {
		publicKey, err = jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.JWTPublicKeyPEM))
		if err != nil {
			log.Panic(err)
		}
	} else {
		log.Warn("JWT_PUBLIC_KEY not set, using identity headers")
	}

	app := service.NewMeetingService(log, store, notifier.NewMultiNotifier(targets...))
	server := rest.NewServer(log, app, cfg.Address, cfg.Version, publicKey)
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
		<-sigCh
		log.Info("Received signal, shutting down...")
		cancel()
	}()
	if err = server.Run(ctx); err != nil {
		log.Panic(err)
	}
	log.Info("Server stopped")
}
