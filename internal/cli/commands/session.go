package commands

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"KeePassLookup/internal/cli/bootstrap"
	"KeePassLookup/internal/cli/model"
	"KeePassLookup/internal/cli/service"
	"KeePassLookup/internal/config"
)

// readPassword читает мастер-пароль из терминала без эха. Переопределяется в тестах.
var readPassword = func() (string, error) {
	fmt.Fprint(ErrOut, "Master password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(ErrOut)
	if err != nil {
		return "", fmt.Errorf("read master password: %w", err)
	}
	return string(b), nil
}

// newEntryService собирает сервис с журналом (если он настроен). Переопределяется в тестах.
var newEntryService = func(cfg *config.Config) (service.EntryService, func() error, error) {
	journal, done, err := bootstrap.OpenLookupJournal(cfg)
	if err != nil {
		return nil, nil, err
	}
	return service.NewEntryServiceLocal(service.KeePassOpener, journal, logger), done, nil
}

// databaseSettings берёт путь и пароль из конфига; при -prompt-password
// и пустом пароле спрашивает его в терминале. Путь проверяется до запроса
// пароля и до открытия журнала.
func databaseSettings(cfg *config.Config) (*model.DatabaseSettings, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabasePath) == "" {
		return nil, fmt.Errorf("%w: database path is required (set KEEPASS_DATABASE_PATH or -db)", service.ErrInvalidArgument)
	}
	s := &model.DatabaseSettings{}
	s.DatabasePath = cfg.DatabasePath
	s.MasterPassword = cfg.MasterPassword
	if cfg.PromptPassword && s.MasterPassword == "" {
		pw, err := readPassword()
		if err != nil {
			return nil, err
		}
		s.MasterPassword = pw
	}
	return s, nil
}
