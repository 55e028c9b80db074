package messaging

// Имена очередей RabbitMQ. Должны совпадать с консьюмерами.
const (
	// AvatarTaskQueue - очередь задач генерации аватаров (консьюмер - внешний
	// avatar-воркер).
	AvatarTaskQueue = "character_avatar_tasks"
)
