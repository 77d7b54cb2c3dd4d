package container

import (
	"fmt"

	"tokenforge/engine/internal/container/domain"
	"tokenforge/engine/internal/errs"
)

// ValidateTemplate checks a template against its container class: every token
// type must be on the class whitelist and every option must be declared by the
// class with the given value allowed. Violations are ParameterErrors.
func ValidateTemplate(class Class, tpl *domain.Template) error {
	for _, tt := range tpl.Tokens {
		if !Supports(class, tt.Type) {
			return errs.Parameter(fmt.Sprintf("unsupported token type %q for %s templates", tt.Type, class.Type()))
		}
	}
	allowed := class.TemplateOptions()
	for key, value := range tpl.Options {
		item, ok := allowed[key]
		if !ok {
			return errs.Parameter(fmt.Sprintf("unsupported option %q for %s templates", key, class.Type()))
		}
		if !allowedValue(item, value) {
			return errs.Parameter(fmt.Sprintf("unsupported value %q for option %q in %s templates", value, key, class.Type()))
		}
	}
	return nil
}

// allowedValue reports whether value is among the option's declared values.
func allowedValue(item PolicyItem, value string) bool {
	values, ok := item.Value.([]string)
	if !ok {
		return false
	}
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
