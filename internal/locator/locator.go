// Package locator ищет одну запись в расшифрованной базе KeePass по пути групп
// и критериям совпадения.
package locator

import (
	"errors"
	"fmt"
	"strings"

	"KeePassLookup/internal/cli/model"
	"KeePassLookup/internal/cli/model/view"
	"KeePassLookup/internal/keepass"
)

// Errors
var (
	ErrGroupNotFound = errors.New("group was not found in the hierarchy")
	ErrEntryNotFound = errors.New("an entry matching the criteria was not found in the target group")
	ErrInvalidUUID   = errors.New("invalid uuid criterion")
)

// GroupNotFoundError называет первый сегмент пути, которого нет среди дочерних групп.
type GroupNotFoundError struct {
	Segment string
}

func (e *GroupNotFoundError) Error() string {
	return fmt.Sprintf("group '%s' was not found in the hierarchy", e.Segment)
}

// Is позволяет сравнивать с ErrGroupNotFound через errors.Is.
func (e *GroupNotFoundError) Is(target error) bool {
	return target == ErrGroupNotFound
}

// Find возвращает первую запись целевой группы, удовлетворяющую всем заданным критериям.
// Поиск идёт только по прямым записям группы, без вложенных групп и истории.
func Find(db *keepass.Database, c model.EntryCriteria) (*keepass.Entry, error) {
	m, err := newMatcher(c)
	if err != nil {
		return nil, err
	}
	if !db.IsOpen() {
		return nil, keepass.ErrOpenFailed
	}
	group, err := ResolveGroup(db.Root, c.GroupHierarchy)
	if err != nil {
		return nil, err
	}
	for _, e := range group.Entries {
		if m.match(e) {
			return e, nil
		}
	}
	return nil, ErrEntryNotFound
}

// ResolveGroup спускается от root по именам. На каждом уровне берётся первая
// прямая дочерняя группа с точно совпадающим именем.
func ResolveGroup(root *keepass.Group, hierarchy []string) (*keepass.Group, error) {
	node := root
	for _, name := range hierarchy {
		var next *keepass.Group
		for _, g := range node.Groups {
			if g.Name == name {
				next = g
				break
			}
		}
		if next == nil {
			return nil, &GroupNotFoundError{Segment: name}
		}
		node = next
	}
	return node, nil
}

// Contains: пустой поиск проходит всегда; иначе поле должно существовать
// и содержать search как подстроку (с учётом регистра).
func Contains(e *keepass.Entry, field, search string) bool {
	if isBlank(search) {
		return true
	}
	v, ok := e.Field(field)
	if !ok {
		return false
	}
	return strings.Contains(v, search)
}

// ParseUUID разбирает критерий Uuid. Пустой критерий означает "не задан".
func ParseUUID(s string) (id keepass.UUID, ok bool, err error) {
	if isBlank(s) {
		return keepass.UUID{}, false, nil
	}
	id, err = keepass.ParseUUID(strings.TrimSpace(s))
	if err != nil {
		return keepass.UUID{}, false, fmt.Errorf("%w: %v", ErrInvalidUUID, err)
	}
	return id, true, nil
}

// Project превращает запись в результат; отсутствующие поля становятся пустыми строками.
func Project(e *keepass.Entry) view.Entry {
	return view.Entry{
		Title:    e.Fields[keepass.FieldTitle],
		Username: e.Fields[keepass.FieldUserName],
		Password: e.Fields[keepass.FieldPassword],
		URL:      e.Fields[keepass.FieldURL],
		Notes:    e.Fields[keepass.FieldNotes],
		UUID:     e.UUID.String(),
	}
}

type matcher struct {
	c       model.EntryCriteria
	uuid    keepass.UUID
	hasUUID bool
}

func newMatcher(c model.EntryCriteria) (*matcher, error) {
	id, ok, err := ParseUUID(c.UUID)
	if err != nil {
		return nil, err
	}
	return &matcher{c: c, uuid: id, hasUUID: ok}, nil
}

func (m *matcher) match(e *keepass.Entry) bool {
	if !Contains(e, keepass.FieldTitle, m.c.Title) {
		return false
	}
	if !Contains(e, keepass.FieldURL, m.c.URL) {
		return false
	}
	if !Contains(e, keepass.FieldUserName, m.c.Username) {
		return false
	}
	return !m.hasUUID || e.UUID == m.uuid
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
