package main

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/kita/core/facility"
	"github.com/trezcool/kita/core/group"
	"github.com/trezcool/kita/core/mealplan"
	"github.com/trezcool/kita/core/user"
)

// seedData is the content of a seed file, e.g.
//
//	facility:
//	  name: Montessori Kinderhaus
//	  opening_hours: "7:00 - 16:00"
//	codes:
//	  parent: PARENT-2025
//	groups:
//	  - name: Sonne
//	    color: bg-yellow-500 text-white
//	    icon: sun
//	meal_options:
//	  lunch: [Nudeln, Reis]
type seedData struct {
	Facility struct {
		Name         string `yaml:"name"`
		DisplayName  string `yaml:"display_name"`
		LogoURL      string `yaml:"logo_url"`
		Address      string `yaml:"address"`
		Phone        string `yaml:"phone"`
		Email        string `yaml:"email"`
		OpeningHours string `yaml:"opening_hours"`
		InfoText     string `yaml:"info_text"`
	} `yaml:"facility"`
	Codes struct {
		Parent string `yaml:"parent"`
		Team   string `yaml:"team"`
		Admin  string `yaml:"admin"`
	} `yaml:"codes"`
	Groups      []group.NewGroup    `yaml:"groups"`
	MealOptions map[string][]string `yaml:"meal_options"`
}

type seedResult struct {
	groups  int
	options int
}

// seedActor performs the admin-only operations of a seed.
var seedActor = user.User{Role: user.RoleAdmin}

func (cli *commandLine) seedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	res, err := cli.seed(data)
	if err != nil {
		return err
	}
	cli.printf("created %d groups and %d meal options\n", res.groups, res.options)
	return nil
}

// seed applies data. Groups and meal options that already exist are skipped, so seeding twice is harmless.
func (cli *commandLine) seed(data []byte) (seedResult, error) {
	var sd seedData
	if err := yaml.Unmarshal(data, &sd); err != nil {
		return seedResult{}, errors.Wrap(err, "parsing seed file")
	}
	ctx := context.Background()

	if err := cli.seedFacility(ctx, sd); err != nil {
		return seedResult{}, err
	}
	if sd.Codes.Parent != "" || sd.Codes.Team != "" || sd.Codes.Admin != "" {
		if _, err := cli.setCodes(sd.Codes.Parent, sd.Codes.Team, sd.Codes.Admin); err != nil {
			return seedResult{}, errors.Wrap(err, "seeding codes")
		}
	}

	var res seedResult
	n, err := cli.seedGroups(ctx, sd.Groups)
	if err != nil {
		return res, err
	}
	res.groups = n
	if res.options, err = cli.seedMealOptions(ctx, sd.MealOptions); err != nil {
		return res, err
	}
	return res, nil
}

func (cli *commandLine) seedFacility(ctx context.Context, sd seedData) error {
	var uf facility.UpdateFacility
	opt := func(dst **string, val string) {
		if val != "" {
			v := val
			*dst = &v
		}
	}
	opt(&uf.Name, sd.Facility.Name)
	opt(&uf.DisplayName, sd.Facility.DisplayName)
	opt(&uf.LogoURL, sd.Facility.LogoURL)
	opt(&uf.Address, sd.Facility.Address)
	opt(&uf.Phone, sd.Facility.Phone)
	opt(&uf.Email, sd.Facility.Email)
	opt(&uf.OpeningHours, sd.Facility.OpeningHours)
	opt(&uf.InfoText, sd.Facility.InfoText)
	if uf == (facility.UpdateFacility{}) {
		return nil
	}

	if err := uf.Validate(ctx, cli.validate); err != nil {
		return errors.Wrap(err, "seeding facility")
	}
	_, err := cli.svcs.Facility.Update(ctx, uf)
	return err
}

func (cli *commandLine) seedGroups(ctx context.Context, groups []group.NewGroup) (int, error) {
	existing, err := cli.svcs.Group.List(ctx)
	if err != nil {
		return 0, err
	}
	names := make(map[string]bool, len(existing))
	for _, g := range existing {
		names[strings.ToLower(g.Name)] = true
	}

	created := 0
	for _, ng := range groups {
		if err = ng.Validate(ctx, cli.validate); err != nil {
			return created, errors.Wrapf(err, "seeding group %q", ng.Name)
		}
		if names[strings.ToLower(ng.Name)] {
			continue
		}
		if _, err = cli.svcs.Group.Create(ctx, ng); err != nil {
			return created, err
		}
		names[strings.ToLower(ng.Name)] = true
		created++
	}
	return created, nil
}

func (cli *commandLine) seedMealOptions(ctx context.Context, options map[string][]string) (int, error) {
	existing, err := cli.svcs.MealPlan.Options(ctx)
	if err != nil {
		return 0, err
	}

	for mealType := range options {
		if !contains(mealplan.MealTypes, mealType) {
			return 0, errors.Errorf("unknown meal type %q", mealType)
		}
	}

	created := 0
	for _, mealType := range mealplan.MealTypes {
		for _, name := range options[mealType] {
			no := mealplan.NewOption{MealType: mealType, Name: name}
			if err = no.Validate(cli.validate); err != nil {
				return created, errors.Wrapf(err, "seeding %s option %q", mealType, name)
			}
			if contains(existing[mealType], no.Name) {
				continue
			}
			if _, err = cli.svcs.MealPlan.AddOption(ctx, seedActor, no); err != nil {
				return created, err
			}
			existing[mealType] = append(existing[mealType], no.Name)
			created++
		}
	}
	return created, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
