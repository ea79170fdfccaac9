package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration matches any *InvalidConfigurationError via errors.Is
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrMaterialNotFound matches any *MaterialNotFoundError via errors.Is
	ErrMaterialNotFound = errors.New("material not found")
	// ErrNumericalDegeneracy marks KPIs whose knee intensity could not be located
	ErrNumericalDegeneracy = errors.New("numerical degeneracy: knee intensity not found in sampled range")
)

// InvalidConfigurationError indicates a non-physical device configuration
type InvalidConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// MaterialNotFoundError indicates a material key absent from the catalog
type MaterialNotFoundError struct {
	Name string
}

func (e *MaterialNotFoundError) Error() string {
	return "material not found: " + e.Name
}

func (e *MaterialNotFoundError) Is(target error) bool {
	return target == ErrMaterialNotFound
}
