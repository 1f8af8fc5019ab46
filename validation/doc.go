// Package validation validates configuration structs and endpoint
// addresses, reporting failures as *errors.AppError values.
//
//	type Config struct {
//	    URL     string        `validate:"required,endpoint"`
//	    Timeout time.Duration `validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// The "endpoint" tag accepts absolute http and https URLs with a host.
package validation
