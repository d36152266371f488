package bootstrap

import (
	"fmt"
	"strings"

	clirepo "KeePassLookup/internal/cli/repo"
	"KeePassLookup/internal/config"
	"KeePassLookup/internal/repo"
)

// OpenLookupJournal открывает журнал обращений по AUDIT_DATABASE_URI, выполняет миграции
// и возвращает (journal, cleanup, error). Если журнал не настроен, journal == nil,
// а cleanup ничего не делает. cleanup необходимо вызвать после окончания работы.
func OpenLookupJournal(cfg *config.Config) (clirepo.LookupJournal, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil || strings.TrimSpace(cfg.AuditDSN) == "" {
		return nil, noop, nil
	}
	db, err := repo.InitDB(cfg.AuditDSN)
	if err != nil {
		return nil, noop, fmt.Errorf("open lookup journal: %w", err)
	}
	closed := false
	cleanup := func() error {
		if closed {
			return nil
		}
		closed = true
		return repo.Close(db)
	}
	return repo.NewLookupRepository(db), cleanup, nil
}
