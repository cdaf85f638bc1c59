package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"

	echoapi "github.com/trezcool/kita/apps/api/echo"
	"github.com/trezcool/kita/apps/di"
	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/legacy"
	"github.com/trezcool/kita/core/user"
	emailsvc "github.com/trezcool/kita/services/email"
	kvsvc "github.com/trezcool/kita/services/kv"
	logsvc "github.com/trezcool/kita/services/logger"
	pushsvc "github.com/trezcool/kita/services/push"
	"github.com/trezcool/kita/storage/database"
	inmemdb "github.com/trezcool/kita/storage/database/inmem"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	ctx := context.Background()

	// set up DB (postgres by default, "memory" keeps everything in the process)
	var repos di.Repos
	if conf.Database.Engine == "memory" {
		logger.Warn("using the in-memory database: data will be lost on restart")
		repos = di.InMemRepos(inmemdb.Open())
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				logger.Error("closing database", err)
			}
		}()
		repos = di.SQLRepos(db)
	}

	// legacy key/value store
	var kv legacy.KVStore
	if conf.Redis.Addr != "" {
		rdb, err := kvsvc.NewRedisStore(ctx, conf.Redis)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer rdb.Close()
		kv = rdb
	} else {
		kv = kvsvc.NewMemoryStore()
	}

	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var pushSvc core.PushService
	if conf.Push.URL == "" {
		pushSvc = pushsvc.NewConsoleService()
	} else {
		fnSvc, err := pushsvc.NewFunctionService(conf.Push)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up push notifications: %v", err), err)
		}
		pushSvc = fnSvc
	}

	svcs := di.NewServices(conf, repos, mailSvc, pushSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	if _, err := svcs.Group.EnsureEventGroup(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("creating the event group: %v", err), err)
	}

	// =========================================================================
	// Start Housekeeping

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(conf.HousekeepingSchedule, func() {
		n, err := svcs.Absence.HideExpired(context.Background())
		if err != nil {
			logger.Error("hiding expired absences", err)
			return
		}
		logger.Info(fmt.Sprintf("hid %d expired absences", n))
	}); err != nil {
		logger.Fatal(fmt.Sprintf("invalid housekeeping schedule %q: %v", conf.HousekeepingSchedule, err), err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress(), http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		UserSvc:     svcs.User,
		FacilitySvc: svcs.Facility,
		GroupSvc:    svcs.Group,
		NewsSvc:     svcs.News,
		ListSvc:     svcs.List,
		AbsenceSvc:  svcs.Absence,
		MealPlanSvc: svcs.MealPlan,
		Legacy:      legacy.NewStore(kv, logger),
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
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

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	return translator
}
