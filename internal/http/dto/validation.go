package dto

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ToResponse(errs []ValidationError) string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func validateURL(raw string) []ValidationError {
	var errs []ValidationError
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return append(errs, ValidationError{Field: "url", Message: "url is required"})
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return append(errs, ValidationError{Field: "url", Message: "invalid URL"})
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{Field: "url", Message: "only http and https URLs are supported"})
	}
	return errs
}
