package service

import (
	"errors"

	"KeePassLookup/internal/keepass"
	"KeePassLookup/internal/locator"
)

// ErrInvalidArgument: не заданы обязательные входные данные или критерий некорректен.
var ErrInvalidArgument = errors.New("invalid argument")

// Kind: класс ошибки поиска; по нему CLI выбирает код завершения.
type Kind int

const (
	KindNone Kind = iota
	KindUnknown
	KindInvalidArgument
	KindInvalidFormat
	KindInvalidCredentials
	KindOpenFailed
	KindGroupNotFound
	KindEntryNotFound
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return ""
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindInvalidFormat:
		return "InvalidFormat"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindOpenFailed:
		return "OpenFailed"
	case KindGroupNotFound:
		return "GroupNotFound"
	case KindEntryNotFound:
		return "EntryNotFound"
	default:
		return "Unknown"
	}
}

// KindOf классифицирует ошибку. nil даёт KindNone.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, locator.ErrInvalidUUID):
		return KindInvalidArgument
	case errors.Is(err, keepass.ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, keepass.ErrInvalidFormat):
		return KindInvalidFormat
	case errors.Is(err, keepass.ErrOpenFailed):
		return KindOpenFailed
	case errors.Is(err, locator.ErrGroupNotFound):
		return KindGroupNotFound
	case errors.Is(err, locator.ErrEntryNotFound):
		return KindEntryNotFound
	default:
		return KindUnknown
	}
}
