package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Issue is a single configuration problem found by Validate.
type Issue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == "error" {
			return true
		}
	}
	return false
}

var fixes = map[string]string{
	"batch_size":    "scadaflat config set batch_size 50",
	"on_file_error": "scadaflat config set on_file_error abort",
	"workers":       "scadaflat config set workers 1",
	"layout.rows":   "scadaflat config set layout.rows 1440",
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields under their config key names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks cfg for problems that would make a run fail or misbehave.
func Validate(cfg *Config) []Issue {
	issues := fieldIssues(cfg)

	if _, err := cfg.Policy(); err != nil {
		issues = append(issues, Issue{
			Key:      "on_file_error",
			Severity: "error",
			Message:  err.Error(),
			Fix:      fixes["on_file_error"],
		})
	}

	// Cell references are only checked once the numeric fields are sane,
	// otherwise the same problem would be reported twice.
	if !hasPrefix(issues, "layout.") {
		if err := cfg.Layout.Validate(); err != nil {
			issues = append(issues, Issue{
				Key:      "layout",
				Severity: "error",
				Message:  err.Error(),
			})
		}
	}

	if len(cfg.Zones) == 0 {
		issues = append(issues, Issue{
			Key:      "zones",
			Severity: "warning",
			Message:  "no zones configured, pass --input/--output to convert",
			Fix:      "scadaflat config init",
		})
	}

	outputs := make(map[string]string)
	for i, z := range cfg.Zones {
		key := fmt.Sprintf("zones[%d]", i)
		if z.Input == "" || z.Output == "" {
			continue
		}

		if info, err := os.Stat(z.Input); err != nil {
			issues = append(issues, Issue{
				Key:      key + ".input",
				Severity: "error",
				Message:  fmt.Sprintf("input folder %s is not readable: %v", z.Input, err),
			})
		} else if !info.IsDir() {
			issues = append(issues, Issue{
				Key:      key + ".input",
				Severity: "error",
				Message:  fmt.Sprintf("input %s is not a folder", z.Input),
			})
		}

		out := filepath.Clean(z.Output)
		if prev, ok := outputs[out]; ok {
			issues = append(issues, Issue{
				Key:      key + ".output",
				Severity: "error",
				Message:  fmt.Sprintf("output folder %s is shared with %s, batch files would overwrite each other", z.Output, prev),
			})
		}
		outputs[out] = key

		if filepath.Clean(z.Input) == out {
			issues = append(issues, Issue{
				Key:      key + ".output",
				Severity: "warning",
				Message:  "output folder equals input folder, written batches will be picked up by the next run",
			})
		}
	}

	return issues
}

// fieldIssues applies the validate struct tags.
func fieldIssues(cfg *Config) []Issue {
	err := newValidator().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{Key: "config", Severity: "error", Message: err.Error()}}
	}

	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "Config.layout.rows"; drop the root type.
		_, key, _ := strings.Cut(fe.Namespace(), ".")
		msg := fmt.Sprintf("%s %s", key, rule(fe))
		if fe.Tag() != "required" {
			msg = fmt.Sprintf("%s, got %v", msg, fe.Value())
		}
		issues = append(issues, Issue{
			Key:      key,
			Severity: "error",
			Message:  msg,
			Fix:      fixes[key],
		})
	}
	return issues
}

func rule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be > " + fe.Param()
	case "min":
		return "must be >= " + fe.Param()
	default:
		return "fails " + fe.Tag()
	}
}

func hasPrefix(issues []Issue, prefix string) bool {
	for _, i := range issues {
		if strings.HasPrefix(i.Key, prefix) {
			return true
		}
	}
	return false
}
