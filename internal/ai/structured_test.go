package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testVerdict struct {
	IsValid  bool   `json:"isValid"`
	Feedback string `json:"feedback"`
}

func TestExtractJSON_Clean(t *testing.T) {
	got, err := ExtractJSON[testVerdict](`{"isValid":true,"feedback":""}`, nil)
	require.NoError(t, err)
	assert.True(t, got.IsValid)
}

func TestExtractJSON_Fenced(t *testing.T) {
	raw := "```json\n{\"isValid\":false,\"feedback\":\"Which project?\"}\n```"
	got, err := ExtractJSON[testVerdict](raw, nil)
	require.NoError(t, err)
	assert.False(t, got.IsValid)
	assert.Equal(t, "Which project?", got.Feedback)
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	raw := "Sure! Here is my verdict:\n{\"isValid\":true}\nLet me know if you need more."
	got, err := ExtractJSON[testVerdict](raw, nil)
	require.NoError(t, err)
	assert.True(t, got.IsValid)
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	raw := `{"isValid":false,"feedback":"use {curly} \"quotes\" // not a comment"}`
	got, err := ExtractJSON[testVerdict](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, `use {curly} "quotes" // not a comment`, got.Feedback)
}

func TestExtractJSON_Comments(t *testing.T) {
	raw := "{\n  \"isValid\": true, // looks fine\n  /* block */ \"feedback\": \"\"\n}"
	got, err := ExtractJSON[testVerdict](raw, nil)
	require.NoError(t, err)
	assert.True(t, got.IsValid)
}

func TestExtractJSON_NoObject(t *testing.T) {
	_, err := ExtractJSON[testVerdict]("I cannot judge this answer.", nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_Unbalanced(t *testing.T) {
	_, err := ExtractJSON[testVerdict](`{"isValid": true`, nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_WrongType(t *testing.T) {
	_, err := ExtractJSON[testVerdict](`{"isValid":"yes"}`, nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_Validator(t *testing.T) {
	reject := func(v testVerdict) error {
		if !v.IsValid && v.Feedback == "" {
			return errors.New("rejection without feedback")
		}
		return nil
	}

	_, err := ExtractJSON(`{"isValid":false}`, reject)
	assert.ErrorIs(t, err, ErrInvalidOutput)

	got, err := ExtractJSON(`{"isValid":false,"feedback":"more please"}`, reject)
	require.NoError(t, err)
	assert.Equal(t, "more please", got.Feedback)
}
