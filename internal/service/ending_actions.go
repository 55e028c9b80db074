package service

import (
	"context"
	"time"

	"storyteller-server/shared/models"
	"storyteller-server/shared/utils"

	"go.uber.org/zap"
)

func (s *sessionServiceImpl) ChooseEnding(ctx context.Context, parentUID, sessionID, endingID string) (*BeatResult, error) {
	log := s.logger.With(zap.String("sessionID", sessionID), zap.String("endingID", endingID))

	session, err := s.loadOwnedSession(ctx, parentUID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IntroductionPending() {
		return nil, models.ErrIntroductionPending
	}
	if session.CurrentPhase != models.PhaseEnding {
		return nil, models.ErrWrongPhase
	}
	if session.HasEnding() {
		return nil, models.ErrEndingAlreadyChosen
	}
	if err := s.beginOp(sessionID); err != nil {
		return nil, err
	}
	defer s.endOp(sessionID)

	optionsMsg, err := s.sessionRepo.LatestOptionsMessage(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if optionsMsg.Kind != models.KindEndingOptions {
		return nil, models.ErrNoOptionsMessage
	}
	ending := optionsMsg.FindOption(endingID)
	if ending == nil {
		return nil, models.ErrOptionNotFound
	}

	// Финальный текст запрашивается ДО записи: упавшая генерация оставляет
	// сессию без концовки, и тот же выбор можно повторить
	beatGenerationsTotal.WithLabelValues("finalize").Inc()
	resp, err := s.flowClient.FinalizeStory(ctx, sessionID, endingID)
	if err != nil {
		log.Warn("Final story generation failed, ending not persisted", zap.Error(err))
		return nil, err
	}
	finalText := resp.FinalStory
	if finalText == "" {
		finalText = resp.Question
	}

	entities := s.resolveEntities(ctx, ending.Text, finalText)
	now := time.Now().UTC()

	choiceMsg := newMessage(models.SenderChild, models.KindChildEndingChoice, ending.Text,
		utils.ResolveText(ending.Text, entities), now)
	finalMsg := newMessage(models.SenderAssistant, models.KindFinalStory, finalText,
		pickResolved(finalText, resp.FinalStoryResolved, entities), now.Add(time.Millisecond))

	update := models.SessionUpdate{
		EndingChosenAt: &now,
		Debug:          debugUpdate(resp),
	}
	actorIDs := utils.ExtractActorIDs(ending.Text, finalText)

	err = s.sessionRepo.SetEndingOnce(ctx, sessionID, endingID, ending.Text,
		[]models.ChatMessage{choiceMsg, finalMsg}, actorIDs, update)
	if err != nil {
		return nil, err
	}

	log.Info("Ending chosen, final story recorded")
	return &BeatResult{
		Messages: []models.ChatMessage{choiceMsg, finalMsg},
		Phase:    models.PhaseEnding,
	}, nil
}
