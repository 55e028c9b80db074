package messaging

// AvatarTaskPayload - задача на генерацию аватара персонажа. Публикуется
// fire-and-forget: движок не ждет результата, воркер аватаров (внешний)
// обновит документ персонажа сам.
type AvatarTaskPayload struct {
	TaskID        string `json:"task_id"`
	CharacterID   string `json:"character_id"`
	SessionID     string `json:"session_id"`
	ParentUID     string `json:"parent_uid"`
	CharacterName string `json:"character_name"`
	CharacterType string `json:"character_type,omitempty"`
	// StoryContext - канонический текст вокруг появления персонажа,
	// подсказка художественному промпту.
	StoryContext string `json:"story_context,omitempty"`
}
