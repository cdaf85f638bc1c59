package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/group"
	"github.com/trezcool/kita/core/user"
	logsvc "github.com/trezcool/kita/services/logger"
)

// NewLogger returns a logger that discards everything.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// NewValidator returns a validator with every custom validation of the app registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	conf *core.Config,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FullName:   name,
		Email:      email,
		Role:       role,
		FacilityID: conf.FacilityID,
		IsActive:   isActive,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	if pwd != "" {
		require.NoError(t, usr.SetPassword(pwd), "createUser()")
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err, "createUser()")
	return usr
}

// CreateChild adds a child to parent. The returned parent carries all of their children.
func CreateChild(t *testing.T, repo user.Repository, parent user.User, firstName, groupID, birthday string) (user.Child, user.User) {
	children, err := repo.CreateChildren(context.Background(), []user.Child{{
		FirstName:  firstName,
		GroupID:    groupID,
		Birthday:   birthday,
		UserID:     parent.ID,
		FacilityID: parent.FacilityID,
		CreatedAt:  time.Now().UTC(),
	}})
	require.NoError(t, err, "createChild()")
	require.Len(t, children, 1)

	parent.Children = append(parent.Children, children[0])
	return children[0], parent
}

func CreateGroup(t *testing.T, repo group.Repository, conf *core.Config, name, color string, position int) group.Group {
	grp, err := repo.CreateGroup(context.Background(), group.Group{
		FacilityID: conf.FacilityID,
		Name:       name,
		Color:      color,
		Icon:       "star",
		Position:   &position,
	})
	require.NoError(t, err, "createGroup()")
	return grp
}
