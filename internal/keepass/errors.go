package keepass

import (
	"errors"
	"fmt"
)

// Errors
var (
	// ErrInvalidFormat: файл не найден, не читается или не является базой KDBX поддерживаемой версии.
	ErrInvalidFormat = errors.New("invalid database file")

	// ErrInvalidCredentials: не прошла проверка целостности (неверный пароль или повреждённые данные).
	ErrInvalidCredentials = errors.New("composite key (password) provided was invalid")

	// ErrOpenFailed: прочие неустранимые ошибки разбора содержимого.
	ErrOpenFailed = errors.New("failed to open keepass database")
)

// Data validation errors
var (
	errBadPadding   = errors.New("bad block padding")
	errCorruptBlock = errors.New("block stream is corrupt")
)

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
