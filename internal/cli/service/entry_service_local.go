package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"KeePassLookup/internal/cli/model"
	"KeePassLookup/internal/cli/model/view"
	"KeePassLookup/internal/cli/repo"
	"KeePassLookup/internal/keepass"
	"KeePassLookup/internal/locator"
	dbmodel "KeePassLookup/internal/model"
)

// EntryServiceLocal: реализация EntryService поверх локального файла базы.
type EntryServiceLocal struct {
	opener  Opener
	journal repo.LookupJournal // может быть nil
	logger  *zap.SugaredLogger
}

// NewEntryServiceLocal создаёт сервис. journal и logger необязательны.
func NewEntryServiceLocal(opener Opener, journal repo.LookupJournal, logger *zap.SugaredLogger) EntryService {
	if opener == nil {
		opener = KeePassOpener
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &EntryServiceLocal{opener: opener, journal: journal, logger: logger}
}

// ReadEntry: проверка входа до любого ввода-вывода, затем открытие, поиск и проекция.
func (s *EntryServiceLocal) ReadEntry(ctx context.Context, settings *model.DatabaseSettings, criteria *model.EntryCriteria) (*view.Entry, error) {
	rec := &dbmodel.LookupRecord{}
	entry, err := s.readEntry(settings, criteria, rec)
	s.record(ctx, rec, err)
	return entry, err
}

func (s *EntryServiceLocal) readEntry(settings *model.DatabaseSettings, criteria *model.EntryCriteria, rec *dbmodel.LookupRecord) (*view.Entry, error) {
	if err := validateSettings(settings); err != nil {
		return nil, err
	}
	rec.DatabasePath = settings.DatabasePath
	if criteria == nil {
		return nil, fmt.Errorf("%w: entry criteria are required", ErrInvalidArgument)
	}
	rec.GroupPath = strings.Join(criteria.GroupHierarchy, "/")
	rec.Criteria = describeCriteria(criteria)
	if _, _, err := locator.ParseUUID(criteria.UUID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	db, err := s.open(settings)
	if err != nil {
		return nil, err
	}
	e, err := locator.Find(db, *criteria)
	if err != nil {
		s.logger.Debugw("entry lookup failed", "path", settings.DatabasePath, "group", rec.GroupPath, "error", err)
		return nil, err
	}
	res := locator.Project(e)
	rec.EntryUUID = res.UUID
	s.logger.Debugw("entry found", "path", settings.DatabasePath, "group", rec.GroupPath, "uuid", res.UUID)
	return &res, nil
}

// Inspect открывает базу и считает группы и записи.
func (s *EntryServiceLocal) Inspect(ctx context.Context, settings *model.DatabaseSettings) (*view.DatabaseInfo, error) {
	if err := validateSettings(settings); err != nil {
		return nil, err
	}
	db, err := s.open(settings)
	if err != nil {
		return nil, err
	}
	groups, entries := db.Count()
	return &view.DatabaseInfo{
		Path:      settings.DatabasePath,
		Version:   db.Version.String(),
		Generator: db.Generator,
		RootName:  db.Root.Name,
		Groups:    groups,
		Entries:   entries,
	}, nil
}

func (s *EntryServiceLocal) open(settings *model.DatabaseSettings) (*keepass.Database, error) {
	start := time.Now()
	s.logger.Debugw("opening database", "path", settings.DatabasePath)
	db, err := s.opener.Open(settings.DatabasePath, settings.MasterPassword)
	if err != nil {
		s.logger.Debugw("database open failed", "path", settings.DatabasePath, "kind", KindOf(err).String(), "error", err)
		return nil, err
	}
	if !db.IsOpen() {
		return nil, keepass.ErrOpenFailed
	}
	s.logger.Debugw("database decoded", "path", settings.DatabasePath, "version", db.Version.String(), "elapsed", time.Since(start))
	return db, nil
}

// record пишет журнал; ошибка журнала не влияет на результат поиска.
func (s *EntryServiceLocal) record(ctx context.Context, rec *dbmodel.LookupRecord, lookupErr error) {
	if s.journal == nil {
		return
	}
	rec.ErrorKind = KindOf(lookupErr).String()
	if err := s.journal.Record(ctx, rec); err != nil {
		s.logger.Warnw("failed to write lookup journal", "error", err)
	}
}

func validateSettings(settings *model.DatabaseSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: database settings are required", ErrInvalidArgument)
	}
	if strings.TrimSpace(settings.DatabasePath) == "" {
		return fmt.Errorf("%w: database path is required", ErrInvalidArgument)
	}
	return nil
}

func describeCriteria(c *model.EntryCriteria) string {
	var parts []string
	if len(c.GroupHierarchy) > 0 {
		parts = append(parts, "group")
	}
	for _, f := range []struct {
		name, value string
	}{
		{"title", c.Title},
		{"username", c.Username},
		{"url", c.URL},
		{"uuid", c.UUID},
	} {
		if strings.TrimSpace(f.value) != "" {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, ",")
}
