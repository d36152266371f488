package service

import (
	"context"

	"KeePassLookup/internal/cli/model"
	"KeePassLookup/internal/cli/model/view"
	"KeePassLookup/internal/keepass"
)

// EntryService описывает юзкейс-уровень поиска учётных данных в базе KeePass.
type EntryService interface {
	// ReadEntry расшифровывает базу и возвращает одну запись по критериям.
	// Каждый вызов заново читает файл; ничего не кешируется.
	ReadEntry(ctx context.Context, settings *model.DatabaseSettings, criteria *model.EntryCriteria) (*view.Entry, error)

	// Inspect расшифровывает базу и возвращает сводку без секретов.
	Inspect(ctx context.Context, settings *model.DatabaseSettings) (*view.DatabaseInfo, error)
}

// Opener: порт декодера базы.
type Opener interface {
	Open(path, password string) (*keepass.Database, error)
}

// OpenerFunc адаптирует функцию к Opener.
type OpenerFunc func(path, password string) (*keepass.Database, error)

func (f OpenerFunc) Open(path, password string) (*keepass.Database, error) {
	return f(path, password)
}

// KeePassOpener: декодер по умолчанию.
var KeePassOpener Opener = OpenerFunc(keepass.Open)
