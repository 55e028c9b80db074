package service

import (
	"context"
	"fmt"
	"time"

	sharedMessaging "storyteller-server/shared/messaging"
	"storyteller-server/shared/models"
	"storyteller-server/shared/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// startIntroduction запускает workflow знакомства с новым персонажем:
// создание персонажа у коллаборатора, fire-and-forget задача на аватар,
// пауза PendingIntroduction с сохраненной исходной опцией и (если слот
// свободен) side-channel вопрос о чертах. Арка НЕ продвигается - это
// произойдет в ContinueAfterIntroduction.
//
// Возвращает (nil, nil), когда создать персонажа не удалось: вызывающая
// сторона продолжает обычную обработку выбора без знакомства.
func (s *sessionServiceImpl) startIntroduction(ctx context.Context, session *models.StorySession, choice models.Choice) (*BeatResult, error) {
	log := s.logger.With(
		zap.String("sessionID", session.ID),
		zap.String("characterName", choice.NewCharacterName))

	resp, err := s.characterClient.CreateCharacter(ctx, models.CreateCharacterRequest{
		SessionID:      session.ID,
		ParentUID:      session.ParentUID,
		ChildID:        session.ChildID,
		CharacterLabel: choice.NewCharacterLabel,
		CharacterName:  choice.NewCharacterName,
		CharacterType:  choice.NewCharacterType,
		StoryContext:   choice.Text,
		GenerateAvatar: false,
	})
	if err != nil {
		log.Warn("Character creation call failed", zap.Error(err))
		return nil, nil
	}
	charID := resp.CharacterID

	// Аватар генерируется асинхронно; провал публикации знакомство не отменяет
	if pubErr := s.avatarPublisher.PublishAvatarTask(ctx, sharedMessaging.AvatarTaskPayload{
		TaskID:        uuid.NewString(),
		CharacterID:   charID,
		SessionID:     session.ID,
		ParentUID:     session.ParentUID,
		CharacterName: choice.NewCharacterName,
		CharacterType: choice.NewCharacterType,
		StoryContext:  choice.Text,
	}); pubErr != nil {
		log.Warn("Avatar task publish failed, character stays without avatar", zap.Error(pubErr))
	}

	now := time.Now().UTC()
	displayName := choice.NewCharacterName
	avatarURL := ""
	if resp.Character != nil {
		if resp.Character.DisplayName != "" {
			displayName = resp.Character.DisplayName
		}
		avatarURL = resp.Character.AvatarURL
	}

	pendingOption := choice
	introduction := &models.PendingIntroduction{
		CharacterID:   charID,
		DisplayName:   displayName,
		AvatarURL:     avatarURL,
		PendingOption: &pendingOption,
		StartedAt:     now,
	}

	entities := s.resolveEntities(ctx, choice.Text)
	choiceMsg := newMessage(models.SenderChild, models.KindChildChoice, choice.Text,
		utils.ResolveText(choice.Text, entities), now)
	messages := []models.ChatMessage{choiceMsg}

	update := models.SessionUpdate{PendingIntroduction: introduction}

	// Вопрос о чертах только при свободном слоте: открытый вопрос о прошлом
	// персонаже имеет приоритет, новый не задается
	if !session.TraitsPending() {
		questionText := fmt.Sprintf("Расскажи мне про $$%s$$! Какой он?", charID)
		traits := &models.PendingCharacterTraits{
			CharacterID:    charID,
			CharacterLabel: choice.NewCharacterLabel,
			QuestionText:   questionText,
			AskedAt:        now,
		}
		update.PendingTraits = traits

		resolved := utils.ResolveText(questionText, map[string]models.EntityDisplay{
			charID: {DisplayName: displayName, AvatarURL: avatarURL},
		})
		traitsMsg := newMessage(models.SenderAssistant, models.KindTraitsQuestion,
			questionText, resolved, now.Add(time.Millisecond))
		messages = append(messages, traitsMsg)
	}

	if err := s.sessionRepo.AppendExchange(ctx, session.ID, messages, []string{charID}, update); err != nil {
		return nil, err
	}
	session.PendingIntroduction = introduction

	log.Info("Character introduction started", zap.String("characterID", charID))
	return &BeatResult{
		Messages:     messages,
		Introduction: introduction,
		Phase:        session.CurrentPhase,
	}, nil
}

func (s *sessionServiceImpl) ContinueAfterIntroduction(ctx context.Context, parentUID, sessionID string) (*BeatResult, error) {
	session, err := s.loadOwnedSession(ctx, parentUID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IntroductionPending() {
		return nil, models.ErrNoIntroductionPending
	}
	if err := s.beginOp(sessionID); err != nil {
		return nil, err
	}
	defer s.endOp(sessionID)

	pending := session.PendingIntroduction
	if pending.PendingOption == nil {
		// Документ с паузой без сохраненной опции восстановлению не подлежит
		if clearErr := s.sessionRepo.AppendExchange(ctx, sessionID, nil, nil,
			models.SessionUpdate{ClearPendingIntroduction: true}); clearErr != nil {
			return nil, clearErr
		}
		session.PendingIntroduction = nil
		return &BeatResult{Phase: session.CurrentPhase}, nil
	}

	storyType, err := s.storyTypeRepo.GetByID(ctx, *session.StoryTypeID)
	if err != nil {
		return nil, err
	}

	// Воспроизводим исходную опцию: сообщение о выборе уже записано при старте
	// паузы, поэтому здесь только продвижение арки и следующий шаг
	return s.advanceAfterChoice(ctx, session, storyType, *pending.PendingOption, true)
}
