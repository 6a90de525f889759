// Package domain contains the core business entities and interfaces.
package domain

import (
	"fmt"
	"strings"
)

// ContentType identifies which document the wizard is collecting answers for.
type ContentType string

const (
	ContentTypeBio        ContentType = "bio"
	ContentTypeProject    ContentType = "project"
	ContentTypeReflection ContentType = "reflection"
)

// ContentTypes lists every supported content type in display order.
func ContentTypes() []ContentType {
	return []ContentType{ContentTypeBio, ContentTypeProject, ContentTypeReflection}
}

// Label returns the human readable name of the content type.
func (c ContentType) Label() string {
	switch c {
	case ContentTypeBio:
		return "Personal Bio"
	case ContentTypeProject:
		return "Project Summary"
	case ContentTypeReflection:
		return "Learning Reflection"
	default:
		return string(c)
	}
}

// IsValid reports whether c is a known content type.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentTypeBio, ContentTypeProject, ContentTypeReflection:
		return true
	}
	return false
}

// ParseContentType converts user input into a ContentType.
func ParseContentType(s string) (ContentType, error) {
	c := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("unknown content type %q", s)
	}
	return c, nil
}

// Tone is the narrative voice of generated content.
type Tone string

const (
	ToneFirstPerson Tone = "first-person"
	ToneThirdPerson Tone = "third-person"
)

// IsValid reports whether t is a known tone.
func (t Tone) IsValid() bool {
	return t == ToneFirstPerson || t == ToneThirdPerson
}

// Word limit bounds for generated content.
const (
	MinWordLimit     = 100
	MaxWordLimit     = 1000
	DefaultWordLimit = 500
)
