package models

import "time"

// EntityKind различает типы акторов, на которые могут ссылаться плейсхолдеры.
type EntityKind string

const (
	EntityChild     EntityKind = "child"
	EntityCharacter EntityKind = "character"
)

// EntityDisplay - display-форма актора для резолва плейсхолдеров $$id$$.
type EntityDisplay struct {
	DisplayName string `firestore:"displayName" json:"displayName"`
	AvatarURL   string `firestore:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
}

// Character - персонаж, созданный в ходе истории. Аватар генерируется
// fire-and-forget: его появление наблюдаемо только как последующее изменение
// документа персонажа, не через возвращаемые значения движка.
type Character struct {
	ID          string    `firestore:"-" json:"id"`
	ParentUID   string    `firestore:"parentUid" json:"parentUid"`
	ChildID     string    `firestore:"childId" json:"childId"`
	DisplayName string    `firestore:"displayName" json:"displayName"`
	Label       string    `firestore:"label,omitempty" json:"label,omitempty"`
	Type        string    `firestore:"type,omitempty" json:"type,omitempty"`
	Traits      string    `firestore:"traits,omitempty" json:"traits,omitempty"`
	AvatarURL   string    `firestore:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
}

// Child - профиль ребенка (управляется родительским приложением, здесь
// только читается для резолва).
type Child struct {
	ID          string    `firestore:"-" json:"id"`
	ParentUID   string    `firestore:"parentUid" json:"parentUid"`
	DisplayName string    `firestore:"displayName" json:"displayName"`
	AvatarURL   string    `firestore:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
}
