package utils

import (
	"testing"

	"storyteller-server/shared/models"

	"github.com/stretchr/testify/assert"
)

func TestExtractActorIDs(t *testing.T) {
	t.Run("no placeholders", func(t *testing.T) {
		assert.Empty(t, ExtractActorIDs("Жил-был маленький дракон."))
	})

	t.Run("single placeholder", func(t *testing.T) {
		ids := ExtractActorIDs("Однажды $$child-1$$ пошел в лес.")
		assert.Equal(t, []string{"child-1"}, ids)
	})

	t.Run("duplicates collapse, order preserved", func(t *testing.T) {
		ids := ExtractActorIDs(
			"$$child-1$$ встретил $$char-7$$.",
			"$$char-7$$ улыбнулся, и $$child-1$$ тоже. Потом пришел $$char-9$$.",
		)
		assert.Equal(t, []string{"child-1", "char-7", "char-9"}, ids)
	})

	t.Run("token with spaces is not a placeholder", func(t *testing.T) {
		assert.Empty(t, ExtractActorIDs("Это просто $$ не токен $$ в тексте."))
	})

	t.Run("unclosed token ignored", func(t *testing.T) {
		assert.Empty(t, ExtractActorIDs("Оборванный $$char-1 токен"))
	})
}

func TestResolveText(t *testing.T) {
	entities := map[string]models.EntityDisplay{
		"child-1": {DisplayName: "Маша"},
		"char-7":  {DisplayName: "Дракоша"},
	}

	t.Run("substitutes display names", func(t *testing.T) {
		got := ResolveText("$$child-1$$ и $$char-7$$ подружились.", entities)
		assert.Equal(t, "Маша и Дракоша подружились.", got)
	})

	t.Run("unknown id degrades to bare id", func(t *testing.T) {
		got := ResolveText("Пришел $$char-404$$.", entities)
		assert.Equal(t, "Пришел char-404.", got)
	})

	t.Run("empty display name degrades to bare id", func(t *testing.T) {
		got := ResolveText("Это $$char-8$$.", map[string]models.EntityDisplay{"char-8": {}})
		assert.Equal(t, "Это char-8.", got)
	})

	t.Run("idempotent on resolved text", func(t *testing.T) {
		once := ResolveText("$$child-1$$ смеется.", entities)
		twice := ResolveText(once, entities)
		assert.Equal(t, once, twice)
	})

	t.Run("text without tokens unchanged", func(t *testing.T) {
		text := "Стоимость $$ не указана"
		assert.Equal(t, text, ResolveText(text, entities))
	})
}

func TestResolveChoices(t *testing.T) {
	entities := map[string]models.EntityDisplay{"char-7": {DisplayName: "Дракоша"}}
	original := []models.Choice{
		{ID: "opt-1", Text: "Позвать $$char-7$$"},
		{ID: "opt-2", Text: "Спрятаться", IsMoreOption: false},
	}

	resolved := ResolveChoices(original, entities)

	assert.Equal(t, "Позвать Дракоша", resolved[0].Text)
	assert.Equal(t, "Спрятаться", resolved[1].Text)
	// Канонический список не изменился
	assert.Equal(t, "Позвать $$char-7$$", original[0].Text)
	assert.Equal(t, "opt-1", resolved[0].ID)
}
