package models

import "time"

// ArcStep - один повествовательный бит шаблона истории.
type ArcStep struct {
	ID    string `json:"id" db:"id"`
	Label string `json:"label" db:"label"`
	// Guidance - инструкция генератору для этого шага, ребенку не показывается.
	Guidance string `json:"guidance,omitempty" db:"guidance"`
	// SuggestsNewCharacter - подсказка генератору предложить на этом шаге
	// опцию с вводом нового персонажа.
	SuggestsNewCharacter bool `json:"suggestsNewCharacter,omitempty" db:"suggests_new_character"`
	StepIndex            int  `json:"-" db:"step_index"`
}

// StoryType - шаблон истории из каталога: упорядоченный список битов (arc).
// Пустой список шагов - валидная конфигурация: история считается open-ended и
// завершается только по сигналу генератора, а не по курсору арки.
type StoryType struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Active      bool      `json:"active" db:"active"`
	ArcSteps    []ArcStep `json:"arcSteps" db:"-"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// TotalArcSteps возвращает длину арки.
func (t *StoryType) TotalArcSteps() int {
	return len(t.ArcSteps)
}

// CurrentArcStep возвращает шаг по курсору или nil, если арка пуста либо
// курсор вне диапазона.
func (t *StoryType) CurrentArcStep(index int) *ArcStep {
	if index < 0 || index >= len(t.ArcSteps) {
		return nil
	}
	return &t.ArcSteps[index]
}

// StoryOutputType - доступный формат компиляции книги (каталог).
// Автокомпиляция откладывается, пока не загружен ни один output type.
type StoryOutputType struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	IsDefault bool      `json:"isDefault" db:"is_default"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
