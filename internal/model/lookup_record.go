package model

import "time"

// LookupRecord: запись журнала обращений к базе паролей.
// Пароли и значения полей сюда не попадают.
type LookupRecord struct {
	ID string `gorm:"primaryKey;type:uuid"`

	DatabasePath string `gorm:"not null;index"`
	GroupPath    string // сегменты иерархии через "/"
	Criteria     string // какие критерии были заданы, через запятую

	EntryUUID string // пусто, если запись не найдена
	ErrorKind string `gorm:"index"` // пусто при успехе

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
