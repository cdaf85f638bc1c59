package core_test

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kita/core"
)

type dated struct {
	Date    string `json:"date" validate:"required,isodate"`
	Week    string `json:"week_key" validate:"omitempty,weekkey"`
	Comment string `json:"comment" validate:"required_with=Week"`
}

func TestInitValidators(t *testing.T) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	tests := []struct {
		name string
		val  dated
		want map[string]string
	}{
		{name: "valid", val: dated{Date: "2024-02-29", Week: "2024-W09", Comment: "ok"}},
		{name: "required", val: dated{}, want: map[string]string{"date": "this field is required"}},
		{name: "bad date", val: dated{Date: "2023-02-29"}, want: map[string]string{"date": "date must be a date formatted as YYYY-MM-DD"}},
		{
			name: "bad week", val: dated{Date: "2024-03-01", Week: "2024-9", Comment: "x"},
			want: map[string]string{"week_key": "week_key must be a week formatted as YYYY-Www"},
		},
		{name: "required with", val: dated{Date: "2024-03-01", Week: "2024-W09"}, want: map[string]string{"comment": "this field is required"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.val)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			got := make(map[string]string)
			for _, fe := range err.(validator.ValidationErrors) {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Anna Schmidt", core.CleanString("  Anna Schmidt "))
	assert.Equal(t, "anna@test.de", core.CleanString(" Anna@Test.DE", true))
}
