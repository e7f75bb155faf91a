package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/vishusingh1/classroom/core"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"

	validRoles = func() map[string]bool {
		m := make(map[string]bool, len(AllRoles))
		for _, r := range AllRoles {
			m[r] = true
		}
		return m
	}()
)

// InitValidators registers the user validators. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(validate, translator, allRolesTag, allRolesText)
}

// allRolesValidation checks that every role of a []string is a known one.
func allRolesValidation(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, role := range roles {
		if !validRoles[role] {
			return false
		}
	}
	return true
}
