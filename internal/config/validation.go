package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with field context.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors.
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors.
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add appends a new validation error.
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks a loaded StewardConfig for invalid values.
func (c StewardConfig) Validate() error {
	var errs ValidationErrors

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs.Add("server.port", "must be between 0 and 65535", c.Server.Port)
	}
	if c.Controller.Workers < 0 {
		errs.Add("controller.workers", "must not be negative", c.Controller.Workers)
	}
	if c.Controller.SyncInterval < 0 {
		errs.Add("controller.syncInterval", "must not be negative", c.Controller.SyncInterval)
	}
	if c.Controller.MaxBackoff != 0 && c.Controller.InitialBackoff > c.Controller.MaxBackoff {
		errs.Add("controller.initialBackoff", "must not exceed controller.maxBackoff", c.Controller.InitialBackoff)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Validate checks an application definition for structural problems.
func (a Application) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(a.Name) == "" {
		errs.Add("name", "is required")
	}

	switch a.Source.Type {
	case SourceTypeDirectory:
		if a.Source.Path == "" {
			errs.Add("source.path", "is required for directory sources")
		}
		if a.Source.RepoURL != "" {
			errs.Add("source.repoURL", "must be empty for directory sources", a.Source.RepoURL)
		}
	case SourceTypeGit:
		if a.Source.RepoURL == "" {
			errs.Add("source.repoURL", "is required for git sources")
		}
	case "":
		errs.Add("source.type", "could not be inferred; set type or repoURL/path")
	default:
		errs.Add("source.type", fmt.Sprintf("unknown source type %q (valid: directory, git)", a.Source.Type), a.Source.Type)
	}

	if a.SyncPolicy.SyncInterval < 0 {
		errs.Add("syncPolicy.syncInterval", "must not be negative", a.SyncPolicy.SyncInterval)
	}

	// Prune and self-heal only make sense with automated sync; the YAML
	// shape already enforces that, so nothing to check here.

	if errs.HasErrors() {
		return errs
	}
	return nil
}
