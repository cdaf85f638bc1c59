package user

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kita/core"
)

func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	RegisterValidators(validate, translator)
	return validate, translator
}

func TestForceResetPassword_Validate(t *testing.T) {
	validate, translator := newValidator()
	usr := User{FullName: "Anna Schmidt", Email: "anna.schmidt@test.de"}

	tests := []struct {
		name     string
		pwd      string
		confirm  string
		wantTag  string
		wantText string
	}{
		{name: "too short", pwd: "Ab1", wantTag: pwdMinLenTag, wantText: pwdMinLenText},
		{name: "no digit", pwd: "Abcdefghij", wantTag: pwdComplexityTag, wantText: pwdComplexityText},
		{name: "no upper", pwd: "abcdefgh1", wantTag: pwdComplexityTag, wantText: pwdComplexityText},
		{name: "similar to name", pwd: "AnnaSchmidt1", wantTag: pwdAttrSimTag, wantText: pwdAttrSimText},
		{name: "confirm mismatch", pwd: "K1ndergarten", confirm: "K1ndergarte", wantTag: "eqfield"},
		{name: "valid", pwd: "K1ndergarten"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confirm := tt.confirm
			if confirm == "" {
				confirm = tt.pwd
			}
			fr := ForceResetPassword{Password: tt.pwd, PasswordConfirm: confirm}
			err := fr.Validate(validate, usr)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "validator.ValidationErrors expected, got %T", err)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.wantTag, verrs[0].Tag())
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, verrs[0].Translate(translator))
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 0.0, similarity("Passw0rd", ""))
	assert.Equal(t, 1.0, similarity("anna", "ANNA"))
	assert.Less(t, similarity("K1ndergarten", "anna@test.de"), pwdMaxSim)
}
