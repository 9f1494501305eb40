package store

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrNotFound = errors.New("not found")

var (
	ErrListingNotFound     = fmt.Errorf("listing %w", ErrNotFound)
	ErrOfferNotFound       = fmt.Errorf("offer %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrProfileNotFound     = fmt.Errorf("profile %w", ErrNotFound)
)

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var extPattern = regexp.MustCompile(`^[a-z0-9]{1,8}$`)

// objectPath builds "{collection}/{id}.{ext}" for an uploaded asset.
func objectPath(collection, id, ext string) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if !extPattern.MatchString(ext) {
		return "", invalid("ext", "must be a short alphanumeric file extension")
	}
	return collection + "/" + id + "." + ext, nil
}
