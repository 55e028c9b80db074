package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sharedMessaging "storyteller-server/shared/messaging"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AvatarTaskPublisher defines the interface for publishing avatar generation
// tasks. Публикация fire-and-forget: результат не ожидается, провал задачи
// наблюдаем только как отсутствие аватара на документе персонажа.
type AvatarTaskPublisher interface {
	PublishAvatarTask(ctx context.Context, payload sharedMessaging.AvatarTaskPayload) error
}

type rabbitMQAvatarPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQAvatarPublisher создает паблишер задач аватаров.
// Очередь объявляется durable, параметры должны совпадать с консьюмером
// (avatar-воркер).
func NewRabbitMQAvatarPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (AvatarTaskPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("avatar publisher: не удалось открыть канал: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("avatar publisher: не удалось объявить очередь '%s': %w", queueName, err)
	}

	return &rabbitMQAvatarPublisher{
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("AvatarPublisher"),
	}, nil
}

func (p *rabbitMQAvatarPublisher) PublishAvatarTask(ctx context.Context, payload sharedMessaging.AvatarTaskPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("avatar publisher: ошибка сериализации: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(publishCtx,
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("Не удалось опубликовать задачу аватара",
			zap.String("taskID", payload.TaskID),
			zap.String("characterID", payload.CharacterID),
			zap.Error(err))
		return fmt.Errorf("avatar publisher: не удалось опубликовать задачу: %w", err)
	}

	p.logger.Debug("Задача аватара опубликована",
		zap.String("taskID", payload.TaskID),
		zap.String("characterID", payload.CharacterID))
	return nil
}
