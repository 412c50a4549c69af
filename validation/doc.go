// Package validation checks configuration structs before a pipeline starts.
//
// Struct tag validation uses go-playground/validator with mapstructure tag
// names, so messages refer to the keys users write in config files:
//
//	type Config struct {
//	    Workers int `mapstructure:"workers" validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// Rules that span several fields are collected with a Validator:
//
//	v := validation.New()
//	v.Check(len(names) > 0, "schema", "at least one field is required")
//	return v.Err()
//
// Both forms report failures as CONFIGURATION_ERROR app errors.
package validation
