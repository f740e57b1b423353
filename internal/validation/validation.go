// Package validation provides common validation functions for IDs and paths.
// This package has no dependencies on other internal packages to avoid import cycles.
package validation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidUserID indicates the user_id value is malformed or attempts path traversal.
var ErrInvalidUserID = errors.New("invalid user_id")

// ErrInvalidGenerationID indicates the generation_id value is malformed or attempts path traversal.
var ErrInvalidGenerationID = errors.New("invalid generation_id")

// UserID checks if a user ID is safe for use as a single segment of the
// per-generation scratch path. Returns the cleaned ID.
func UserID(userID string) (string, error) {
	if userID == "" {
		return "", nil
	}

	// IDs must be a single path segment.
	if userID == "." || userID == ".." {
		return "", ErrInvalidUserID
	}
	if strings.ContainsAny(userID, `/\\`) {
		return "", ErrInvalidUserID
	}

	cleanUID := filepath.Clean(userID)
	if cleanUID != userID ||
		strings.HasPrefix(cleanUID, "..") ||
		strings.Contains(cleanUID, string(os.PathSeparator)+"..") ||
		filepath.IsAbs(cleanUID) {
		return "", ErrInvalidUserID
	}

	return cleanUID, nil
}

// GenerationID checks if a client-supplied generation ID is safe for use as
// a single segment of the scratch path.
func GenerationID(generationID string) (string, error) {
	if generationID == "" {
		return "", nil
	}

	if generationID == "." || generationID == ".." {
		return "", ErrInvalidGenerationID
	}
	if strings.ContainsAny(generationID, `/\\`) {
		return "", ErrInvalidGenerationID
	}

	cleanGID := filepath.Clean(generationID)
	if cleanGID != generationID ||
		strings.HasPrefix(cleanGID, "..") ||
		strings.Contains(cleanGID, string(os.PathSeparator)+"..") ||
		filepath.IsAbs(cleanGID) {
		return "", ErrInvalidGenerationID
	}

	return cleanGID, nil
}

// Generation submission limits, named directly after §6.1.
const (
	MinPromptChars     = 10
	MaxPromptChars     = 2000
	MaxTitleChars      = 200
	MaxBrandChars      = 50
	MaxReferenceImages = 3
)

var (
	// ErrPromptTooShort means the prompt is below MinPromptChars.
	ErrPromptTooShort = errors.New("prompt must be at least 10 characters")
	// ErrPromptTooLong means the prompt exceeds MaxPromptChars.
	ErrPromptTooLong = errors.New("prompt must be at most 2000 characters")
	// ErrTitleTooLong means the optional title exceeds MaxTitleChars.
	ErrTitleTooLong = errors.New("title must be at most 200 characters")
	// ErrBrandTooLong means the optional brand name exceeds MaxBrandChars.
	ErrBrandTooLong = errors.New("brand_name must be at most 50 characters")
	// ErrTooManyImages means more than MaxReferenceImages were supplied.
	ErrTooManyImages = errors.New("at most 3 reference images are allowed")
	// ErrImageTooLarge means a reference image exceeds the configured cap.
	ErrImageTooLarge = errors.New("reference image exceeds the size cap")
	// ErrImageBadMIMEType means a reference image's MIME type is not
	// image/jpeg or image/png.
	ErrImageBadMIMEType = errors.New("reference image must be image/jpeg or image/png")
)

// Prompt validates the submission prompt's length, per §6.1.
func Prompt(prompt string) error {
	n := len([]rune(prompt))
	if n < MinPromptChars {
		return ErrPromptTooShort
	}
	if n > MaxPromptChars {
		return ErrPromptTooLong
	}
	return nil
}

// Title validates the optional submission title's length.
func Title(title string) error {
	if len([]rune(title)) > MaxTitleChars {
		return ErrTitleTooLong
	}
	return nil
}

// BrandName validates the optional submission brand name's length.
func BrandName(brand string) error {
	if len([]rune(brand)) > MaxBrandChars {
		return ErrBrandTooLong
	}
	return nil
}

// ReferenceImage validates one reference image's size and MIME type
// against the configured per-image cap.
func ReferenceImage(sizeBytes int64, mimeType string, capBytes int64) error {
	if sizeBytes > capBytes {
		return ErrImageTooLarge
	}
	switch mimeType {
	case "image/jpeg", "image/png":
		return nil
	default:
		return ErrImageBadMIMEType
	}
}
