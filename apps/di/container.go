// Package di wires the repositories and services shared by the API server and the admin CLI.
package di

import (
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/absence"
	"github.com/trezcool/kita/core/facility"
	"github.com/trezcool/kita/core/group"
	"github.com/trezcool/kita/core/grouplist"
	"github.com/trezcool/kita/core/mealplan"
	"github.com/trezcool/kita/core/news"
	"github.com/trezcool/kita/core/user"
	"github.com/trezcool/kita/storage/database"
	inmemdb "github.com/trezcool/kita/storage/database/inmem"
	sqlxrepos "github.com/trezcool/kita/storage/database/sqlx"
)

type (
	Repos struct {
		Tx        core.Transactor
		Users     user.Repository
		Facility  facility.Repository
		Groups    group.Repository
		News      news.Repository
		Lists     grouplist.Repository
		Absences  absence.Repository
		MealPlans mealplan.Repository
	}

	Services struct {
		User     *user.Service
		Facility *facility.Service
		Group    *group.Service
		News     *news.Service
		List     *grouplist.Service
		Absence  *absence.Service
		MealPlan *mealplan.Service
	}
)

// SQLRepos returns the PostgreSQL repositories.
func SQLRepos(db *sqlx.DB) Repos {
	return Repos{
		Tx:        database.NewTransactor(db),
		Users:     sqlxrepos.NewUserRepository(db),
		Facility:  sqlxrepos.NewFacilityRepository(db),
		Groups:    sqlxrepos.NewGroupRepository(db),
		News:      sqlxrepos.NewNewsRepository(db),
		Lists:     sqlxrepos.NewGroupListRepository(db),
		Absences:  sqlxrepos.NewAbsenceRepository(db),
		MealPlans: sqlxrepos.NewMealPlanRepository(db),
	}
}

// InMemRepos returns repositories keeping everything in db.
func InMemRepos(db *inmemdb.DB) Repos {
	return Repos{
		Tx:        inmemdb.NewTransactor(db),
		Users:     inmemdb.NewUserRepository(db),
		Facility:  inmemdb.NewFacilityRepository(db),
		Groups:    inmemdb.NewGroupRepository(db),
		News:      inmemdb.NewNewsRepository(db),
		Lists:     inmemdb.NewGroupListRepository(db),
		Absences:  inmemdb.NewAbsenceRepository(db),
		MealPlans: inmemdb.NewMealPlanRepository(db),
	}
}

func NewServices(
	conf *core.Config,
	repos Repos,
	mailSvc core.EmailService,
	pushSvc core.PushService,
	logger core.Logger,
) Services {
	facilitySvc := facility.NewService(conf, repos.Facility)
	groupSvc := group.NewService(conf, repos.Groups, repos.Tx)
	usrSvc := user.NewService(user.ServiceDeps{
		Conf:    conf,
		Repo:    repos.Users,
		Tx:      repos.Tx,
		Groups:  groupSvc,
		Codes:   facilitySvc,
		MailSvc: mailSvc,
	})

	return Services{
		User:     usrSvc,
		Facility: facilitySvc,
		Group:    groupSvc,
		News:     news.NewService(conf, repos.News, pushSvc, logger),
		List:     grouplist.NewService(conf, repos.Lists, repos.Tx, groupSvc, pushSvc, logger),
		Absence:  absence.NewService(conf, repos.Absences, usrSvc, groupSvc, pushSvc, logger),
		MealPlan: mealplan.NewService(conf, repos.MealPlans, repos.Tx, pushSvc, logger),
	}
}
