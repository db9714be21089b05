package academy

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestLibrary(t *testing.T) {
	prompts := Library()
	assert.Len(t, prompts, 15)
	assert.Equal(t, "Crear 3 titulares para Instagram", prompts[0].Title)

	for _, p := range prompts {
		assert.NotEmpty(t, p.Title)
		assert.NotEmpty(t, p.Prompt)
	}
}

func TestLibrary_ReturnsCopy(t *testing.T) {
	prompts := Library()
	prompts[0].Title = "changed"
	assert.Equal(t, "Crear 3 titulares para Instagram", Library()[0].Title)
}

func TestPrompt_Excerpt(t *testing.T) {
	long := Prompt{Prompt: strings.Repeat("á", 200)}
	excerpt := long.Excerpt()
	assert.True(t, strings.HasSuffix(excerpt, "..."))
	assert.Equal(t, ExcerptLength+3, utf8.RuneCountInString(excerpt))

	short := Prompt{Prompt: "Hola"}
	assert.Equal(t, "Hola...", short.Excerpt())
}
