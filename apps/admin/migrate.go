package main

import (
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	appfs "github.com/trezcool/kita/fs"
)

const migrationsDir = "migrations"

var gooseRunFunc = goose.RunFS // mockable

// migrate runs the goose command args[0] against the embedded migrations.
func (cli *commandLine) migrate(args []string) error {
	command, rest := args[0], args[1:]
	if err := gooseRunFunc(command, cli.db, appfs.FS, migrationsDir, rest...); err != nil {
		return errors.Wrapf(err, "migrate %s", command)
	}
	return nil
}
