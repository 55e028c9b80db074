package models

// DTO контрактов внешних коллабораторов (story-flow, персонажи, компиляция).
// Движок потребляет только эти структуры; сами сервисы для него черные ящики.

// BeatRequest - запрос на генерацию очередного бита (или warmup-реплики).
type BeatRequest struct {
	SessionID        string  `json:"sessionId"`
	SelectedOptionID *string `json:"selectedOptionId,omitempty"`
	UserMessage      *string `json:"userMessage,omitempty"`
	// MoreOptions - повторный запрос вариантов без продвижения истории;
	// результат замещает последнее options-сообщение.
	MoreOptions bool `json:"moreOptions,omitempty"`
}

// FlowDebug - диагностические поля ответа генератора.
type FlowDebug struct {
	Prompt    string `json:"prompt,omitempty"`
	FlowTrace string `json:"flowTrace,omitempty"`
}

// BeatResponse - ответ генератора. Каждое текстовое поле имеет каноническую
// форму (с плейсхолдерами $$id$$) и параллельную *Resolved display-форму.
type BeatResponse struct {
	OK                 bool       `json:"ok"`
	HeaderText         string     `json:"headerText,omitempty"`
	HeaderTextResolved string     `json:"headerTextResolved,omitempty"`
	Question           string     `json:"question"`
	QuestionResolved   string     `json:"questionResolved,omitempty"`
	Options            []Choice   `json:"options,omitempty"`
	OptionsResolved    []Choice   `json:"optionsResolved,omitempty"`
	IsStoryComplete    bool       `json:"isStoryComplete"`
	FinalStory         string     `json:"finalStory,omitempty"`
	FinalStoryResolved string     `json:"finalStoryResolved,omitempty"`
	Debug              *FlowDebug `json:"debug,omitempty"`
	ErrorMessage       string     `json:"errorMessage,omitempty"`
}

// EndingOption - один вариант концовки.
type EndingOption struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	TextResolved string `json:"textResolved,omitempty"`
}

// EndingsResponse - ответ endpoint'а концовок.
type EndingsResponse struct {
	OK           bool           `json:"ok"`
	Endings      []EndingOption `json:"endings"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
}

// CreateCharacterRequest - запрос на создание персонажа.
type CreateCharacterRequest struct {
	SessionID      string `json:"sessionId"`
	ParentUID      string `json:"parentUid"`
	ChildID        string `json:"childId"`
	CharacterLabel string `json:"characterLabel"`
	CharacterName  string `json:"characterName"`
	CharacterType  string `json:"characterType"`
	StoryContext   string `json:"storyContext,omitempty"`
	GenerateAvatar bool   `json:"generateAvatar"`
}

// CreateCharacterResponse - ответ сервиса персонажей.
type CreateCharacterResponse struct {
	OK           bool       `json:"ok"`
	CharacterID  string     `json:"characterId"`
	Character    *Character `json:"character,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// CompileRequest - запрос на компиляцию книги.
type CompileRequest struct {
	SessionID         string `json:"sessionId"`
	StoryOutputTypeID string `json:"storyOutputTypeId"`
}

// CompileResponse - ответ компилятора.
type CompileResponse struct {
	OK           bool   `json:"ok"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}
