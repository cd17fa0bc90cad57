package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/nexussync/clubs/apps/api/echo"
	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/budget"
	"github.com/nexussync/clubs/core/club"
	"github.com/nexussync/clubs/core/conflict"
	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/message"
	"github.com/nexussync/clubs/core/notification"
	"github.com/nexussync/clubs/core/post"
	"github.com/nexussync/clubs/core/quiz"
	"github.com/nexussync/clubs/core/user"
	"github.com/nexussync/clubs/core/venue"
	emailsvc "github.com/nexussync/clubs/services/email"
	logsvc "github.com/nexussync/clubs/services/logger"
	"github.com/nexussync/clubs/storage/database"
	sqlxrepos "github.com/nexussync/clubs/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	mailSvc, err := emailsvc.New(conf, std, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up email service: %v", err), err)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db))
	clubSvc := club.NewService(sqlxrepos.NewClubRepository(db))
	venueSvc := venue.NewService(sqlxrepos.NewVenueRepository(db))
	eventSvc := event.NewService(sqlxrepos.NewEventRepository(db), venueSvc, usrSvc, notifSvc, mailSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	club.InitValidators(validate, translator)

	if err := core.ParseEmailTemplates(conf.Debug); err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Validate:        validate,
		Translator:      translator,
		Hub:             broadcast.NewHub(broadcast.DefaultBuffer),
		UserSvc:         usrSvc,
		ClubSvc:         clubSvc,
		VenueSvc:        venueSvc,
		EventSvc:        eventSvc,
		PostSvc:         post.NewService(sqlxrepos.NewPostRepository(db), notifSvc),
		NotificationSvc: notifSvc,
		BudgetSvc:       budget.NewService(sqlxrepos.NewBudgetRepository(db), notifSvc, logger),
		ConflictSvc:     conflict.NewService(sqlxrepos.NewConflictRepository(db), eventSvc),
		QuizSvc:         quiz.NewService(sqlxrepos.NewQuizRepository(db)),
		MessageSvc:      message.NewService(sqlxrepos.NewMessageRepository(db), usrSvc, clubSvc, notifSvc, mailSvc),
	})
	server.Start()

	// =========================================================================
	// Shutdown

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case <-server.ShutdownSignal():
		logger.Info("shutdown requested: Start shutdown...")
		shutdown(server, conf, logger)

	case sig := <-sigs:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		shutdown(server, conf, logger)
	}
}

func shutdown(server *echoapi.Server, conf *core.Config, logger core.Logger) {
	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

		if err := server.Close(); err != nil {
			logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
