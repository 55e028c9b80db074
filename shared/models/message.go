package models

import "time"

// MessageSender identifies who produced a chat message.
type MessageSender string

const (
	SenderChild     MessageSender = "child"
	SenderAssistant MessageSender = "assistant"
)

// MessageKind is a closed enum of message shapes in the session log.
// Every switch over MessageKind must handle all variants explicitly.
type MessageKind string

const (
	// KindWarmupQuestion - разогревающий вопрос ассистента до выбора типа истории.
	KindWarmupQuestion MessageKind = "warmup_question"
	// KindBeatContinuation - очередной фрагмент повествования.
	KindBeatContinuation MessageKind = "beat_continuation"
	// KindBeatOptions - варианты продолжения, предлагаемые ребенку.
	KindBeatOptions MessageKind = "beat_options"
	// KindChildChoice - выбранная ребенком опция.
	KindChildChoice MessageKind = "child_choice"
	// KindChildMessage - свободная реплика ребенка (warmup или диалог).
	KindChildMessage MessageKind = "child_message"
	// KindTraitsQuestion - side-channel вопрос о чертах нового персонажа.
	KindTraitsQuestion MessageKind = "character_traits_question"
	// KindTraitsAnswer - ответ ребенка на вопрос о чертах.
	KindTraitsAnswer MessageKind = "character_traits_answer"
	// KindEndingOptions - варианты концовок.
	KindEndingOptions MessageKind = "ending_options"
	// KindChildEndingChoice - выбранная ребенком концовка.
	KindChildEndingChoice MessageKind = "child_ending_choice"
	// KindFinalStory - терминальное сообщение с полным текстом истории.
	// Его появление запускает автокомпиляцию (см. CompileWatcher).
	KindFinalStory MessageKind = "final_story"
)

// Valid проверяет принадлежность к закрытому множеству вариантов.
func (k MessageKind) Valid() bool {
	switch k {
	case KindWarmupQuestion, KindBeatContinuation, KindBeatOptions, KindChildChoice,
		KindChildMessage, KindTraitsQuestion, KindTraitsAnswer, KindEndingOptions,
		KindChildEndingChoice, KindFinalStory:
		return true
	}
	return false
}

// IsOptions сообщает, является ли сообщение списком вариантов. Только
// последнее options-сообщение может быть заменено in-place ("ещё варианты").
func (k MessageKind) IsOptions() bool {
	return k == KindBeatOptions || k == KindEndingOptions
}

// IsFinalStory сообщает, терминальное ли это сообщение.
func (k MessageKind) IsFinalStory() bool {
	return k == KindFinalStory
}

// Choice - один вариант продолжения (или концовки), предлагаемый ребенку.
type Choice struct {
	ID   string `firestore:"id" json:"id"`
	Text string `firestore:"text" json:"text"`
	// IntroducesCharacter помечает опцию, вводящую нового персонажа; поля
	// NewCharacter* заполнены только при true.
	IntroducesCharacter bool   `firestore:"introducesCharacter,omitempty" json:"introducesCharacter,omitempty"`
	NewCharacterName    string `firestore:"newCharacterName,omitempty" json:"newCharacterName,omitempty"`
	NewCharacterLabel   string `firestore:"newCharacterLabel,omitempty" json:"newCharacterLabel,omitempty"`
	NewCharacterType    string `firestore:"newCharacterType,omitempty" json:"newCharacterType,omitempty"`
	// IsMoreOption - синтетическая опция "ещё варианты": повторный запрос к
	// генератору без продвижения истории.
	IsMoreOption bool `firestore:"isMoreOption,omitempty" json:"isMoreOption,omitempty"`
}

// ChatMessage - элемент append-only лога сессии, упорядоченного по времени
// создания. Сообщения неизменяемы после записи, за единственным исключением:
// последнее options-сообщение может быть заменено целиком при запросе
// "ещё варианты".
//
// Инвариант: Text/Options - каноническая форма с плейсхолдерами $$id$$, именно
// она хранится и подается обратно в генерацию; TextResolved/OptionsResolved -
// производная display-форма, никогда не участвующая в генерации.
type ChatMessage struct {
	ID              string        `firestore:"-" json:"id"`
	Sender          MessageSender `firestore:"sender" json:"sender"`
	Kind            MessageKind   `firestore:"kind" json:"kind"`
	Text            string        `firestore:"text" json:"text"`
	TextResolved    string        `firestore:"textResolved,omitempty" json:"textResolved,omitempty"`
	Options         []Choice      `firestore:"options,omitempty" json:"options,omitempty"`
	OptionsResolved []Choice      `firestore:"optionsResolved,omitempty" json:"optionsResolved,omitempty"`
	CreatedAt       time.Time     `firestore:"createdAt" json:"createdAt"`
}

// FindOption возвращает опцию по id из options-сообщения.
func (m *ChatMessage) FindOption(optionID string) *Choice {
	for i := range m.Options {
		if m.Options[i].ID == optionID {
			return &m.Options[i]
		}
	}
	return nil
}
