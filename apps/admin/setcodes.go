package main

import (
	"context"

	"github.com/trezcool/kita/core"
	"github.com/trezcool/kita/core/facility"
)

// setCodes replaces the non-empty registration codes, the others keep their current value.
func (cli *commandLine) setCodes(parent, team, admin string) (facility.Codes, error) {
	ctx := context.Background()
	codes, err := cli.svcs.Facility.Codes(ctx)
	if err != nil {
		return facility.Codes{}, err
	}
	set := func(dst *string, code string) {
		if code = core.CleanString(code); code != "" {
			*dst = code
		}
	}
	set(&codes.Parent, parent)
	set(&codes.Team, team)
	set(&codes.Admin, admin)
	if err = codes.Validate(cli.validate); err != nil {
		return facility.Codes{}, err
	}
	return cli.svcs.Facility.UpdateCodes(ctx, codes)
}
