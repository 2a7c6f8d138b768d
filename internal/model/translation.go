package model

import (
	"fmt"
	"strings"
)

// TranslateMode selects the translation direction.
type TranslateMode string

const (
	ModeChToEn TranslateMode = "ch-to-en"
	ModeEnToCh TranslateMode = "en-to-ch"
)

// ParseTranslateMode accepts "ch-to-en"/"chToEn" and "en-to-ch"/"enToCh".
func ParseTranslateMode(s string) (TranslateMode, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "")) {
	case "chtoen", "":
		return ModeChToEn, nil
	case "entoch":
		return ModeEnToCh, nil
	}
	return "", fmt.Errorf("unknown translate mode %q", s)
}

// TranslationStatus is the outcome of one translation request.
type TranslationStatus string

const (
	TranslationOK       TranslationStatus = "ok"
	TranslationNotFound TranslationStatus = "not_found"
	TranslationNoMatch  TranslationStatus = "no_match"
	TranslationError    TranslationStatus = "error"
)

// Translation is the result of translating one name.
type Translation struct {
	Original   string            `json:"original"`
	Translated string            `json:"translated,omitempty"`
	ID         string            `json:"id,omitempty"`
	Status     TranslationStatus `json:"status"`
}
