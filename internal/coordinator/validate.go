package coordinator

import (
	"unicode/utf8"

	"github.com/quickpick/api/internal/apperr"
	"github.com/quickpick/api/internal/session"
)

const (
	maxNameLength    = 30
	maxSelectionSize = 50
	maxCatalogSize   = 100
)

func validateCode(code string) error {
	if !session.ValidCode(code) {
		return apperr.Validation("invalid_code", "session code must be 6 uppercase letters or digits")
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return apperr.Validation("invalid_name", "display name is required")
	}
	// Characters, not bytes: multibyte display names count per rune.
	if utf8.RuneCountInString(name) > maxNameLength {
		return apperr.Validation("invalid_name", "display name is too long")
	}
	return nil
}

func validateSelectionIDs(ids []string) error {
	if len(ids) == 0 {
		return apperr.Validation("empty_selection", "at least one option must be selected")
	}
	if len(ids) > maxSelectionSize {
		return apperr.Validation("selection_too_large", "too many options selected")
	}
	for _, id := range ids {
		if id == "" {
			return apperr.Validation("invalid_options", "selection contains an empty option id")
		}
	}
	return nil
}
