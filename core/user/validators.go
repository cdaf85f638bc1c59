package user

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/kita/core"
)

var (
	// password policy (temporary password replacement)
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character and 1 digit"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your name or email"
)

// RegisterValidators registers the user struct validations and their translations.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(forceResetStructValidation, ForceResetPassword{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdComplexityTag, pwdComplexityText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

func forceResetStructValidation(sl validator.StructLevel) {
	if fr, ok := sl.Current().Interface().(ForceResetPassword); ok {
		validatePassword(fr.Password, fr.name, fr.email, sl)
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - complexity: 1 upper, 1 lower, 1 digit
// - no similarity with name or email
func validatePassword(pwd, name, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	if len([]rune(pwd)) < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}

	var hasUpper, hasLower, hasDig bool
	for _, char := range pwd {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDig = true
		}
	}
	if !(hasUpper && hasLower && hasDig) {
		reportErr(pwdComplexityTag)
		return
	}

	if similarity(pwd, name) >= pwdMaxSim || similarity(pwd, email) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
	}
}

func similarity(pwd, usrAttr string) float64 {
	if usrAttr == "" {
		return 0
	}
	a := strings.Split(strings.ToLower(pwd), "")
	b := strings.Split(strings.ToLower(usrAttr), "")
	return difflib.NewMatcher(a, b).Ratio()
}
