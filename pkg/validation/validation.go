package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	v    *validator.Validate
	once sync.Once
)

// DatasetExtensions lists the file formats the dataset loader understands.
var DatasetExtensions = []string{".csv", ".xlsx", ".xlsm"}

// Validator returns a singleton validator with custom rules registered.
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New()
		// Custom: dataset path must have a supported extension
		_ = v.RegisterValidation("dataset_ext", func(fl validator.FieldLevel) bool {
			return HasDatasetExt(fl.Field().String())
		})
		// Custom: comma-separated report selection
		_ = v.RegisterValidation("report_list", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return true
			}
			for _, part := range strings.Split(s, ",") {
				switch strings.ToLower(strings.TrimSpace(part)) {
				case "efficiency", "contractors", "trends", "summary":
				default:
					return false
				}
			}
			return true
		})
	})
	return v
}

// HasDatasetExt reports whether path ends in one of DatasetExtensions.
func HasDatasetExt(path string) bool {
	s := strings.TrimSpace(path)
	if s == "" {
		return false
	}
	ext := strings.ToLower(filepath.Ext(s))
	for _, e := range DatasetExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ValidateStruct validates a struct and returns a user-friendly error string
// suitable for tool errors and CLI output. Returns empty string when valid.
func ValidateStruct(s any) string {
	if err := Validator().Struct(s); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			fe := ve[0]
			field := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "required":
				return fmt.Sprintf("VALIDATION: %s is required", field)
			case "dataset_ext":
				return "VALIDATION: path must be a dataset file (.csv, .xlsx, .xlsm)"
			case "report_list":
				return "VALIDATION: reports must be a comma-separated list of efficiency, contractors, trends, summary"
			case "oneof":
				return fmt.Sprintf("VALIDATION: %s must be one of [%s]", field, fe.Param())
			case "gtefield":
				return fmt.Sprintf("VALIDATION: %s must be >= %s", field, strings.ToLower(fe.Param()))
			case "min", "max", "gte", "lte", "gt", "lt":
				return fmt.Sprintf("VALIDATION: %s must satisfy %s=%s", field, fe.Tag(), fe.Param())
			}
			// Fallback generic
			return fmt.Sprintf("VALIDATION: invalid %s", field)
		}
		return "VALIDATION: invalid inputs"
	}
	return ""
}
