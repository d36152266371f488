// Package keepass читает базы паролей KeePass в формате KDBX (3.x и 4.x)
// и строит из них дерево групп и записей в памяти.
package keepass

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Имена стандартных строковых полей записи.
const (
	FieldTitle    = "Title"
	FieldUserName = "UserName"
	FieldURL      = "URL"
	FieldNotes    = "Notes"
	FieldPassword = "Password"
)

// UUID: 16-байтный идентификатор группы или записи.
type UUID [16]byte

// String возвращает идентификатор в виде hex-строки в верхнем регистре.
func (u UUID) String() string {
	return strings.ToUpper(hex.EncodeToString(u[:]))
}

// ParseUUID разбирает hex-строку из 32 символов (регистр не важен).
func ParseUUID(s string) (UUID, error) {
	var u UUID
	if len(s) != 2*len(u) {
		return UUID{}, fmt.Errorf("uuid must be %d hex digits, got %d", 2*len(u), len(s))
	}
	if _, err := hex.Decode(u[:], []byte(s)); err != nil {
		return UUID{}, fmt.Errorf("uuid: %w", err)
	}
	return u, nil
}

// FormatVersion: версия формата файла из заголовка.
type FormatVersion struct {
	Major uint16
	Minor uint16
}

func (v FormatVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Database: расшифрованная база. Создаётся заново на каждый вызов Open/Decode.
type Database struct {
	Root      *Group
	Version   FormatVersion
	Generator string

	open bool
}

// IsOpen сообщает, была ли база успешно расшифрована и разобрана.
func (db *Database) IsOpen() bool {
	return db != nil && db.open && db.Root != nil
}

// Count возвращает число групп (без корневой) и записей во всём дереве.
// История записей не учитывается.
func (db *Database) Count() (groups, entries int) {
	if db == nil || db.Root == nil {
		return 0, 0
	}
	stk := []*Group{db.Root}
	for len(stk) > 0 {
		g := stk[len(stk)-1]
		stk = stk[:len(stk)-1]
		entries += len(g.Entries)
		groups += len(g.Groups)
		stk = append(stk, g.Groups...)
	}
	return groups, entries
}

// Group: именованный узел дерева. Порядок дочерних элементов соответствует файлу.
type Group struct {
	UUID    UUID
	Name    string
	Groups  []*Group
	Entries []*Entry
}

// Entry: одна учётная запись.
type Entry struct {
	UUID    UUID
	Fields  map[string]string
	History []*Entry
}

// NewEntry создаёт запись с пустым набором полей.
func NewEntry(id UUID) *Entry {
	return &Entry{UUID: id, Fields: make(map[string]string)}
}

// Field возвращает значение поля и признак его наличия.
func (e *Entry) Field(name string) (string, bool) {
	v, ok := e.Fields[name]
	return v, ok
}
