package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	sqlIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	// Table names are interpolated into queries, so only plain identifiers pass.
	_ = v.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || sqlIdent.MatchString(s)
	})
	return v
}

// Validate checks the declarations: every layer has an id, a display name and
// exactly one classification, ids are unique and at most one layer is weighted.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	weighted := 0
	for _, l := range c.Layers {
		if l.Weighted {
			weighted++
		}
	}
	if weighted > 1 {
		return fmt.Errorf("invalid config: %d weighted layers, at most one allowed", weighted)
	}
	return nil
}
