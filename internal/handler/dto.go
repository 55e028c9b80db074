package handler

// startSessionRequest - тело запроса на создание сессии.
type startSessionRequest struct {
	ChildID string `json:"childId"`
}

// selectStoryTypeRequest - тело запроса на выбор типа истории.
type selectStoryTypeRequest struct {
	StoryTypeID string `json:"storyTypeId"`
}

// sendMessageRequest - тело свободной реплики ребенка.
type sendMessageRequest struct {
	Text string `json:"text"`
}

// chooseOptionRequest - тело выбора опции из последнего options-сообщения.
type chooseOptionRequest struct {
	OptionID string `json:"optionId"`
}

// chooseEndingRequest - тело выбора концовки.
type chooseEndingRequest struct {
	EndingID string `json:"endingId"`
}
