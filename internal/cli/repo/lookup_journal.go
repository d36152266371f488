package repo

import (
	"KeePassLookup/internal/model"
	"context"
)

// LookupJournal определяет порт журнала обращений к базе паролей.
// Реализация на gorm: repo.NewLookupRepository из internal/repo.
type LookupJournal interface {
	// Record сохраняет одну запись журнала.
	Record(ctx context.Context, rec *model.LookupRecord) error

	// Recent возвращает последние записи, новые первыми.
	Recent(ctx context.Context, limit int) ([]model.LookupRecord, error)
}
