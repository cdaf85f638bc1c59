package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kita/apps/di"
	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/user"
	emailsvc "github.com/trezcool/kita/services/email"
	logsvc "github.com/trezcool/kita/services/logger"
	pushsvc "github.com/trezcool/kita/services/push"
	"github.com/trezcool/kita/storage/database"
	inmemdb "github.com/trezcool/kita/storage/database/inmem"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	var db *sql.DB
	var repos di.Repos
	if conf.Database.Engine == "memory" {
		repos = di.InMemRepos(inmemdb.Open())
	} else {
		sqlxDB, err := database.Open(conf)
		if err != nil {
			logger.Fatal("opening database", err)
		}
		defer sqlxDB.Close()
		db = sqlxDB.DB
		repos = di.SQLRepos(sqlxDB)
	}

	// the CLI never notifies anyone
	svcs := di.NewServices(conf, repos, emailsvc.NewConsoleService(conf), pushsvc.NewConsoleService(), logger)

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	cli := commandLine{
		conf:     conf,
		db:       db,
		repos:    repos,
		svcs:     svcs,
		validate: validate,
		out:      os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed: "+err.Error(), err)
		}
		logger.Close()
		os.Exit(1)
	}
}
