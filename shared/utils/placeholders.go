package utils

import (
	"regexp"
	"strings"

	"storyteller-server/shared/models"
)

// Кодек плейсхолдеров акторов. Канонический текст историй хранит ссылки на
// сущности (детей и персонажей) в виде токенов $$<entityId>$$, чтобы имена не
// запекались в сохраненный текст. Display-форма получается подстановкой
// DisplayName; каноническая форма никогда не перезаписывается.

var actorPlaceholderRe = regexp.MustCompile(`\$\$([^$\s]+)\$\$`)

// ExtractActorIDs возвращает упорядоченный список уникальных id сущностей,
// на которые ссылаются токены $$id$$ во всех переданных текстах.
func ExtractActorIDs(texts ...string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, text := range texts {
		for _, match := range actorPlaceholderRe.FindAllStringSubmatch(text, -1) {
			id := match[1]
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// ChoiceTexts собирает тексты опций для извлечения акторов.
func ChoiceTexts(choices []models.Choice) []string {
	texts := make([]string, 0, len(choices))
	for _, c := range choices {
		texts = append(texts, c.Text)
	}
	return texts
}

// ResolveText заменяет каждый токен $$id$$ на display-имя сущности.
// Текст без токенов возвращается без изменений (резолв идемпотентен).
// Отсутствующая в карте сущность деградирует мягко: виден голый id,
// пользовательский контент никогда не падает с ошибкой.
func ResolveText(text string, entities map[string]models.EntityDisplay) string {
	if !strings.Contains(text, "$$") {
		return text
	}
	return actorPlaceholderRe.ReplaceAllStringFunc(text, func(token string) string {
		id := strings.TrimSuffix(strings.TrimPrefix(token, "$$"), "$$")
		if display, ok := entities[id]; ok && display.DisplayName != "" {
			return display.DisplayName
		}
		return id
	})
}

// ResolveChoices возвращает копию списка опций с той же подстановкой,
// примененной к тексту каждой опции.
func ResolveChoices(choices []models.Choice, entities map[string]models.EntityDisplay) []models.Choice {
	if len(choices) == 0 {
		return nil
	}
	resolved := make([]models.Choice, len(choices))
	copy(resolved, choices)
	for i := range resolved {
		resolved[i].Text = ResolveText(resolved[i].Text, entities)
	}
	return resolved
}
