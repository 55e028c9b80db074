package models

import "time"

// SessionPhase - верхнеуровневая фаза сессии истории.
// Переходы строго однонаправленные: warmup -> story -> ending.
// Терминальное состояние "compiled" наблюдается извне (по сообщению final_story)
// и не хранится как фаза.
type SessionPhase string

const (
	PhaseWarmup SessionPhase = "warmup"
	PhaseStory  SessionPhase = "story"
	PhaseEnding SessionPhase = "ending"
)

// Valid проверяет, что фаза - одно из известных значений.
func (p SessionPhase) Valid() bool {
	switch p {
	case PhaseWarmup, PhaseStory, PhaseEnding:
		return true
	}
	return false
}

// PendingCharacterTraits - открытый side-channel вопрос о чертах нового персонажа.
// Пока слот занят, любой свободный текст ребенка трактуется как ответ на этот
// вопрос, а не как обычная реплика. Слот очищается атомарно вместе с записью
// сообщения-ответа. Одновременно может быть открыт максимум один слот.
type PendingCharacterTraits struct {
	CharacterID    string    `firestore:"characterId" json:"characterId"`
	CharacterLabel string    `firestore:"characterLabel" json:"characterLabel"`
	QuestionText   string    `firestore:"questionText" json:"questionText"`
	AskedAt        time.Time `firestore:"askedAt" json:"askedAt"`
}

// PendingIntroduction - пауза "знакомство с новым персонажем".
// Хранится на сессии, чтобы после подтверждения (или переподключения клиента)
// можно было воспроизвести исходно выбранную опцию.
type PendingIntroduction struct {
	CharacterID   string    `firestore:"characterId" json:"characterId"`
	DisplayName   string    `firestore:"displayName" json:"displayName"`
	AvatarURL     string    `firestore:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	PendingOption *Choice   `firestore:"pendingOption" json:"pendingOption"`
	StartedAt     time.Time `firestore:"startedAt" json:"startedAt"`
}

// SessionProgress - write-once отметки этапов (для аналитики и отладки,
// state machine их не читает).
type SessionProgress struct {
	WarmupCompletedAt   *time.Time `firestore:"warmupCompletedAt,omitempty" json:"warmupCompletedAt,omitempty"`
	StoryTypeChosenAt   *time.Time `firestore:"storyTypeChosenAt,omitempty" json:"storyTypeChosenAt,omitempty"`
	StoryArcCompletedAt *time.Time `firestore:"storyArcCompletedAt,omitempty" json:"storyArcCompletedAt,omitempty"`
	EndingChosenAt      *time.Time `firestore:"endingChosenAt,omitempty" json:"endingChosenAt,omitempty"`
}

// SessionDebug - диагностический скретч, перезаписывается при каждом вызове
// генерации. Никогда не читается логикой.
type SessionDebug struct {
	LastPrompt    string `firestore:"lastPrompt,omitempty" json:"lastPrompt,omitempty"`
	LastFlowDebug string `firestore:"lastFlowDebug,omitempty" json:"lastFlowDebug,omitempty"`
}

// StorySession - одна незавершенная или завершенная история ребенка.
type StorySession struct {
	ID                     string                  `firestore:"-" json:"id"`
	ChildID                string                  `firestore:"childId" json:"childId"`
	ParentUID              string                  `firestore:"parentUid" json:"parentUid"`
	StoryTypeID            *string                 `firestore:"storyTypeId" json:"storyTypeId"`
	CurrentPhase           SessionPhase            `firestore:"currentPhase" json:"currentPhase"`
	ArcStepIndex           int                     `firestore:"arcStepIndex" json:"arcStepIndex"`
	SelectedEndingID       *string                 `firestore:"selectedEndingId" json:"selectedEndingId"`
	SelectedEndingText     string                  `firestore:"selectedEndingText,omitempty" json:"selectedEndingText,omitempty"`
	PendingCharacterTraits *PendingCharacterTraits `firestore:"pendingCharacterTraits,omitempty" json:"pendingCharacterTraits,omitempty"`
	PendingIntroduction    *PendingIntroduction    `firestore:"pendingIntroduction,omitempty" json:"pendingIntroduction,omitempty"`
	// Actors - append-only множество id сущностей (дети + персонажи),
	// упомянутых в сгенерированном тексте. Растет через ArrayUnion, никогда
	// не уменьшается.
	Actors    []string        `firestore:"actors" json:"actors"`
	Progress  SessionProgress `firestore:"progress" json:"progress"`
	Debug     SessionDebug    `firestore:"debug,omitempty" json:"-"`
	CreatedAt time.Time       `firestore:"createdAt" json:"createdAt"`
	UpdatedAt time.Time       `firestore:"updatedAt" json:"updatedAt"`
}

// StoryTypeChosen сообщает, выбран ли уже тип истории (до выбора сессия
// находится в неявном состоянии "awaiting story-type selection").
func (s *StorySession) StoryTypeChosen() bool {
	return s.StoryTypeID != nil && *s.StoryTypeID != ""
}

// HasEnding сообщает, выбрана ли уже концовка. Используется как write-once
// защита: повторная попытка записи отклоняется.
func (s *StorySession) HasEnding() bool {
	return s.SelectedEndingID != nil && *s.SelectedEndingID != ""
}

// TraitsPending сообщает, открыт ли side-channel вопрос о чертах персонажа.
func (s *StorySession) TraitsPending() bool {
	return s.PendingCharacterTraits != nil
}

// IntroductionPending сообщает, ждет ли сессия подтверждения знакомства.
func (s *StorySession) IntroductionPending() bool {
	return s.PendingIntroduction != nil
}

// SessionUpdate - частичное обновление документа сессии. Поля-указатели со
// значением nil не трогаются. Clear-флаги удаляют соответствующий слот в той
// же записи, что и остальные изменения (см. гарантию атомарности батча).
type SessionUpdate struct {
	CurrentPhase             *SessionPhase
	ArcStepIndex             *int
	StoryTypeID              *string
	PendingTraits            *PendingCharacterTraits
	ClearPendingTraits       bool
	PendingIntroduction      *PendingIntroduction
	ClearPendingIntroduction bool
	WarmupCompletedAt        *time.Time
	StoryTypeChosenAt        *time.Time
	StoryArcCompletedAt      *time.Time
	EndingChosenAt           *time.Time
	Debug                    *SessionDebug
}

// IsZero сообщает, есть ли в обновлении хоть одно изменение.
func (u SessionUpdate) IsZero() bool {
	return u.CurrentPhase == nil && u.ArcStepIndex == nil && u.StoryTypeID == nil &&
		u.PendingTraits == nil && !u.ClearPendingTraits &&
		u.PendingIntroduction == nil && !u.ClearPendingIntroduction &&
		u.WarmupCompletedAt == nil && u.StoryTypeChosenAt == nil &&
		u.StoryArcCompletedAt == nil && u.EndingChosenAt == nil && u.Debug == nil
}
