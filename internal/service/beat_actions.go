package service

import (
	"context"
	"time"

	"storyteller-server/shared/models"
	"storyteller-server/shared/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// beatInput - вход оркестратора генерации для одного вызова.
type beatInput struct {
	SelectedOptionID *string
	UserMessage      *string
	// ChildMessage - реплика ребенка, которую нужно записать в лог в одном
	// батче с ответом генератора.
	ChildMessage *models.ChatMessage
}

// newMessage создает сообщение лога с собственным id и временной меткой.
func newMessage(sender models.MessageSender, kind models.MessageKind, text, resolved string, at time.Time) models.ChatMessage {
	return models.ChatMessage{
		ID:           uuid.NewString(),
		Sender:       sender,
		Kind:         kind,
		Text:         text,
		TextResolved: resolved,
		CreatedAt:    at,
	}
}

// resolveEntities резолвит акторов всех переданных текстов. Ошибка резолва не
// фатальна: вернется пустая карта и кодек оставит голые id.
func (s *sessionServiceImpl) resolveEntities(ctx context.Context, texts ...string) map[string]models.EntityDisplay {
	ids := utils.ExtractActorIDs(texts...)
	if len(ids) == 0 {
		return nil
	}
	entities, err := s.resolver.ResolveActors(ctx, ids)
	if err != nil {
		s.logger.Warn("Actor resolution failed, placeholders degrade to raw ids", zap.Error(err))
		return nil
	}
	return entities
}

// pickResolved предпочитает готовую display-форму из ответа генератора,
// иначе резолвит каноническую локально.
func pickResolved(canonical, fromFlow string, entities map[string]models.EntityDisplay) string {
	if fromFlow != "" {
		return fromFlow
	}
	return utils.ResolveText(canonical, entities)
}

func pickResolvedChoices(canonical, fromFlow []models.Choice, entities map[string]models.EntityDisplay) []models.Choice {
	if len(fromFlow) == len(canonical) && len(fromFlow) > 0 {
		return fromFlow
	}
	return utils.ResolveChoices(canonical, entities)
}

func debugUpdate(resp *models.BeatResponse) *models.SessionDebug {
	if resp.Debug == nil {
		return nil
	}
	return &models.SessionDebug{
		LastPrompt:    resp.Debug.Prompt,
		LastFlowDebug: resp.Debug.FlowTrace,
	}
}

// runWarmup запрашивает warmup-реплику и пишет ее (вместе с реплиой ребенка,
// если была) одним батчем.
func (s *sessionServiceImpl) runWarmup(ctx context.Context, session *models.StorySession, userText *string) (*BeatResult, error) {
	beatGenerationsTotal.WithLabelValues("warmup").Inc()
	resp, err := s.flowClient.GenerateBeat(ctx, models.BeatRequest{
		SessionID:   session.ID,
		UserMessage: userText,
	})
	if err != nil {
		return nil, err
	}

	entities := s.resolveEntities(ctx, resp.Question)
	now := time.Now().UTC()

	var messages []models.ChatMessage
	if userText != nil {
		messages = append(messages, newMessage(models.SenderChild, models.KindChildMessage, *userText, *userText, now))
		now = now.Add(time.Millisecond)
	}
	messages = append(messages, newMessage(
		models.SenderAssistant,
		models.KindWarmupQuestion,
		resp.Question,
		pickResolved(resp.Question, resp.QuestionResolved, entities),
		now,
	))

	actorIDs := utils.ExtractActorIDs(resp.Question)
	update := models.SessionUpdate{Debug: debugUpdate(resp)}

	if err := s.sessionRepo.AppendExchange(ctx, session.ID, messages, actorIDs, update); err != nil {
		return nil, err
	}
	return &BeatResult{Messages: messages, Phase: session.CurrentPhase}, nil
}

// runBeat - один вызов оркестратора генерации: нормализация предусловий,
// запрос к генератору, извлечение акторов, атомарная запись сообщений вместе
// с обновлением сессии. При ошибке ничего не персистится.
func (s *sessionServiceImpl) runBeat(ctx context.Context, session *models.StorySession, input beatInput, update models.SessionUpdate) (*BeatResult, error) {
	// Нормализация: тип выбран, а фаза еще warmup - переводим в story
	if session.StoryTypeChosen() && session.CurrentPhase == models.PhaseWarmup && update.CurrentPhase == nil {
		phase := models.PhaseStory
		zero := 0
		now := time.Now().UTC()
		update.CurrentPhase = &phase
		update.WarmupCompletedAt = &now
		if update.ArcStepIndex == nil {
			update.ArcStepIndex = &zero
		}
		session.CurrentPhase = models.PhaseStory
	}

	beatGenerationsTotal.WithLabelValues("beat").Inc()
	resp, err := s.flowClient.GenerateBeat(ctx, models.BeatRequest{
		SessionID:        session.ID,
		SelectedOptionID: input.SelectedOptionID,
		UserMessage:      input.UserMessage,
	})
	if err != nil {
		return nil, err
	}

	update.Debug = debugUpdate(resp)
	now := time.Now().UTC()

	var messages []models.ChatMessage
	if input.ChildMessage != nil {
		msg := *input.ChildMessage
		msg.CreatedAt = now
		now = now.Add(time.Millisecond)
		messages = append(messages, msg)
	}

	if resp.IsStoryComplete && resp.FinalStory != "" {
		// Терминальное сообщение: генератор сам завершил историю
		entities := s.resolveEntities(ctx, resp.FinalStory)
		messages = append(messages, newMessage(
			models.SenderAssistant,
			models.KindFinalStory,
			resp.FinalStory,
			pickResolved(resp.FinalStory, resp.FinalStoryResolved, entities),
			now,
		))
		actorIDs := utils.ExtractActorIDs(resp.FinalStory)
		if err := s.sessionRepo.AppendExchange(ctx, session.ID, messages, actorIDs, update); err != nil {
			return nil, err
		}
		return &BeatResult{Messages: messages, Phase: session.CurrentPhase}, nil
	}

	allTexts := append([]string{resp.HeaderText, resp.Question}, utils.ChoiceTexts(resp.Options)...)
	entities := s.resolveEntities(ctx, allTexts...)

	if resp.HeaderText != "" {
		messages = append(messages, newMessage(
			models.SenderAssistant,
			models.KindBeatContinuation,
			resp.HeaderText,
			pickResolved(resp.HeaderText, resp.HeaderTextResolved, entities),
			now,
		))
		now = now.Add(time.Millisecond)
	}

	optionsMsg := newMessage(
		models.SenderAssistant,
		models.KindBeatOptions,
		resp.Question,
		pickResolved(resp.Question, resp.QuestionResolved, entities),
		now,
	)
	optionsMsg.Options = resp.Options
	optionsMsg.OptionsResolved = pickResolvedChoices(resp.Options, resp.OptionsResolved, entities)
	messages = append(messages, optionsMsg)

	actorIDs := utils.ExtractActorIDs(allTexts...)
	if err := s.sessionRepo.AppendExchange(ctx, session.ID, messages, actorIDs, update); err != nil {
		return nil, err
	}
	return &BeatResult{Messages: messages, Phase: session.CurrentPhase}, nil
}

func (s *sessionServiceImpl) SendChildMessage(ctx context.Context, parentUID, sessionID, text string) (*BeatResult, error) {
	log := s.logger.With(zap.String("sessionID", sessionID))

	if text == "" {
		return nil, models.ErrInvalidInput
	}
	session, err := s.loadOwnedSession(ctx, parentUID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IntroductionPending() {
		return nil, models.ErrIntroductionPending
	}
	if err := s.beginOp(sessionID); err != nil {
		return nil, err
	}
	defer s.endOp(sessionID)

	// Side-channel: открытый вопрос о чертах перехватывает свободный текст
	if session.TraitsPending() {
		return s.answerTraitsQuestion(ctx, session, text)
	}

	childMsg := newMessage(models.SenderChild, models.KindChildMessage, text, text, time.Now().UTC())

	if !session.StoryTypeChosen() {
		// Warmup-диалог до выбора типа истории
		return s.runWarmup(ctx, session, &text)
	}

	result, err := s.runBeat(ctx, session, beatInput{UserMessage: &text, ChildMessage: &childMsg}, models.SessionUpdate{})
	if err != nil {
		log.Warn("Beat generation for child message failed", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// answerTraitsQuestion закрывает side-channel: ответ пишется в лог в одном
// батче с очисткой слота (защита от двойного ответа), затем обновляются черты
// персонажа и запрашивается новый бит.
func (s *sessionServiceImpl) answerTraitsQuestion(ctx context.Context, session *models.StorySession, text string) (*BeatResult, error) {
	log := s.logger.With(zap.String("sessionID", session.ID))
	pending := session.PendingCharacterTraits

	answerMsg := newMessage(models.SenderChild, models.KindTraitsAnswer, text, text, time.Now().UTC())
	update := models.SessionUpdate{ClearPendingTraits: true}
	if err := s.sessionRepo.AppendExchange(ctx, session.ID, []models.ChatMessage{answerMsg}, nil, update); err != nil {
		return nil, err
	}
	session.PendingCharacterTraits = nil

	if err := s.entityRepo.UpdateCharacterTraits(ctx, pending.CharacterID, text); err != nil {
		// Черты не критичны для продолжения истории
		log.Warn("Failed to update character traits",
			zap.String("characterID", pending.CharacterID), zap.Error(err))
	}

	if !session.StoryTypeChosen() {
		result, err := s.runWarmup(ctx, session, nil)
		if err != nil {
			return nil, err
		}
		result.Messages = append([]models.ChatMessage{answerMsg}, result.Messages...)
		return result, nil
	}

	result, err := s.runBeat(ctx, session, beatInput{}, models.SessionUpdate{})
	if err != nil {
		// Ответ уже записан; следующий бит можно просто перезапросить
		log.Warn("Beat generation after traits answer failed", zap.Error(err))
		return nil, err
	}
	result.Messages = append([]models.ChatMessage{answerMsg}, result.Messages...)
	return result, nil
}

func (s *sessionServiceImpl) ChooseOption(ctx context.Context, parentUID, sessionID, optionID string) (*BeatResult, error) {
	log := s.logger.With(zap.String("sessionID", sessionID), zap.String("optionID", optionID))

	session, err := s.loadOwnedSession(ctx, parentUID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IntroductionPending() {
		return nil, models.ErrIntroductionPending
	}
	if !session.StoryTypeChosen() {
		return nil, models.ErrStoryTypeNotChosen
	}
	if session.CurrentPhase == models.PhaseEnding {
		return nil, models.ErrWrongPhase
	}
	if err := s.beginOp(sessionID); err != nil {
		return nil, err
	}
	defer s.endOp(sessionID)

	optionsMsg, err := s.sessionRepo.LatestOptionsMessage(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if optionsMsg.Kind != models.KindBeatOptions {
		return nil, models.ErrWrongPhase
	}
	choice := optionsMsg.FindOption(optionID)
	if choice == nil {
		return nil, models.ErrOptionNotFound
	}

	if choice.IsMoreOption {
		return s.replaceOptions(ctx, session, optionsMsg)
	}

	storyType, err := s.storyTypeRepo.GetByID(ctx, *session.StoryTypeID)
	if err != nil {
		return nil, err
	}

	if choice.IntroducesCharacter {
		result, err := s.startIntroduction(ctx, session, *choice)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
		// Создание персонажа не удалось - продолжаем историю без знакомства
		log.Warn("Character creation failed, continuing story without introduction")
	}

	return s.advanceAfterChoice(ctx, session, storyType, *choice, false)
}

// advanceAfterChoice - общий хвост обработки выбора: запись выбора и нового
// индекса арки строго ДО запроса следующего бита (упавшая генерация оставляет
// сессию возобновляемой), затем ветка концовок либо очередной бит.
func (s *sessionServiceImpl) advanceAfterChoice(ctx context.Context, session *models.StorySession, storyType *models.StoryType, choice models.Choice, clearIntroduction bool) (*BeatResult, error) {
	nextIndex, reachedEnd := AdvanceArc(session.ArcStepIndex, storyType.TotalArcSteps())

	var preMessages []models.ChatMessage
	if !clearIntroduction {
		// При знакомстве сообщение о выборе уже записано на паузе
		entities := s.resolveEntities(ctx, choice.Text)
		choiceMsg := newMessage(models.SenderChild, models.KindChildChoice, choice.Text,
			utils.ResolveText(choice.Text, entities), time.Now().UTC())
		preMessages = append(preMessages, choiceMsg)
	}

	update := models.SessionUpdate{
		ArcStepIndex:             &nextIndex,
		ClearPendingIntroduction: clearIntroduction,
	}
	if err := s.sessionRepo.AppendExchange(ctx, session.ID, preMessages, nil, update); err != nil {
		return nil, err
	}
	session.ArcStepIndex = nextIndex
	session.PendingIntroduction = nil

	if reachedEnd {
		result, err := s.runEnding(ctx, session)
		if err != nil {
			return nil, err
		}
		result.Messages = append(preMessages, result.Messages...)
		return result, nil
	}

	result, err := s.runBeat(ctx, session, beatInput{SelectedOptionID: &choice.ID}, models.SessionUpdate{})
	if err != nil {
		return nil, err
	}
	result.Messages = append(preMessages, result.Messages...)
	return result, nil
}

// runEnding запрашивает варианты концовок и переводит сессию в фазу ending.
func (s *sessionServiceImpl) runEnding(ctx context.Context, session *models.StorySession) (*BeatResult, error) {
	beatGenerationsTotal.WithLabelValues("endings").Inc()
	resp, err := s.flowClient.GenerateEndings(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	options := make([]models.Choice, 0, len(resp.Endings))
	texts := make([]string, 0, len(resp.Endings))
	for _, ending := range resp.Endings {
		options = append(options, models.Choice{ID: ending.ID, Text: ending.Text})
		texts = append(texts, ending.Text)
	}
	entities := s.resolveEntities(ctx, texts...)

	endingsMsg := newMessage(models.SenderAssistant, models.KindEndingOptions, "", "", time.Now().UTC())
	endingsMsg.Options = options
	endingsMsg.OptionsResolved = utils.ResolveChoices(options, entities)
	for i, ending := range resp.Endings {
		if ending.TextResolved != "" {
			endingsMsg.OptionsResolved[i].Text = ending.TextResolved
		}
	}

	phase := models.PhaseEnding
	now := time.Now().UTC()
	update := models.SessionUpdate{
		CurrentPhase:        &phase,
		StoryArcCompletedAt: &now,
	}
	actorIDs := utils.ExtractActorIDs(texts...)

	if err := s.sessionRepo.AppendExchange(ctx, session.ID, []models.ChatMessage{endingsMsg}, actorIDs, update); err != nil {
		return nil, err
	}
	session.CurrentPhase = models.PhaseEnding
	return &BeatResult{Messages: []models.ChatMessage{endingsMsg}, Phase: models.PhaseEnding}, nil
}

func (s *sessionServiceImpl) MoreOptions(ctx context.Context, parentUID, sessionID string) (*BeatResult, error) {
	session, err := s.loadOwnedSession(ctx, parentUID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IntroductionPending() {
		return nil, models.ErrIntroductionPending
	}
	if err := s.beginOp(sessionID); err != nil {
		return nil, err
	}
	defer s.endOp(sessionID)

	optionsMsg, err := s.sessionRepo.LatestOptionsMessage(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.replaceOptions(ctx, session, optionsMsg)
}

// replaceOptions перезапрашивает варианты и замещает последнее
// options-сообщение in-place: тот же id и createdAt, количество сообщений в
// логе не меняется.
func (s *sessionServiceImpl) replaceOptions(ctx context.Context, session *models.StorySession, optionsMsg *models.ChatMessage) (*BeatResult, error) {
	replacement := *optionsMsg

	switch optionsMsg.Kind {
	case models.KindBeatOptions:
		beatGenerationsTotal.WithLabelValues("more_options").Inc()
		resp, err := s.flowClient.GenerateBeat(ctx, models.BeatRequest{
			SessionID:   session.ID,
			MoreOptions: true,
		})
		if err != nil {
			return nil, err
		}
		allTexts := append([]string{resp.Question}, utils.ChoiceTexts(resp.Options)...)
		entities := s.resolveEntities(ctx, allTexts...)
		if resp.Question != "" {
			replacement.Text = resp.Question
			replacement.TextResolved = pickResolved(resp.Question, resp.QuestionResolved, entities)
		}
		replacement.Options = resp.Options
		replacement.OptionsResolved = pickResolvedChoices(resp.Options, resp.OptionsResolved, entities)

		update := models.SessionUpdate{Debug: debugUpdate(resp)}
		actorIDs := utils.ExtractActorIDs(allTexts...)
		if err := s.sessionRepo.ReplaceLatestOptions(ctx, session.ID, replacement, actorIDs, update); err != nil {
			return nil, err
		}

	case models.KindEndingOptions:
		resp, err := s.flowClient.GenerateEndings(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		options := make([]models.Choice, 0, len(resp.Endings))
		texts := make([]string, 0, len(resp.Endings))
		for _, ending := range resp.Endings {
			options = append(options, models.Choice{ID: ending.ID, Text: ending.Text})
			texts = append(texts, ending.Text)
		}
		entities := s.resolveEntities(ctx, texts...)
		replacement.Options = options
		replacement.OptionsResolved = utils.ResolveChoices(options, entities)

		actorIDs := utils.ExtractActorIDs(texts...)
		if err := s.sessionRepo.ReplaceLatestOptions(ctx, session.ID, replacement, actorIDs, models.SessionUpdate{}); err != nil {
			return nil, err
		}

	default:
		return nil, models.ErrNoOptionsMessage
	}

	return &BeatResult{Messages: []models.ChatMessage{replacement}, Phase: session.CurrentPhase}, nil
}
