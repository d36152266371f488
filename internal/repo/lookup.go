package repo

import (
	"KeePassLookup/internal/model"
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LookupRepository хранит журнал обращений к базам паролей.
type LookupRepository interface {
	// Record добавляет запись; пустой ID заполняется новым UUID.
	Record(ctx context.Context, rec *model.LookupRecord) error

	// Recent возвращает последние limit записей, новые первыми.
	Recent(ctx context.Context, limit int) ([]model.LookupRecord, error)
}

type lookupRepo struct {
	db *gorm.DB
}

// NewLookupRepository создаёт реализацию журнала поверх gorm.
func NewLookupRepository(db *gorm.DB) LookupRepository {
	return &lookupRepo{db: db}
}

func (r *lookupRepo) Record(ctx context.Context, rec *model.LookupRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *lookupRepo) Recent(ctx context.Context, limit int) ([]model.LookupRecord, error) {
	var out []model.LookupRecord
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
