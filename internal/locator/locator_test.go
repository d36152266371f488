package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KeePassLookup/internal/cli/model"
	"KeePassLookup/internal/cli/model/view"
	"KeePassLookup/internal/keepass"
	"KeePassLookup/internal/keepass/keepasstest"
)

func sampleDB(t *testing.T) *keepass.Database {
	t.Helper()
	data, err := keepasstest.Encode(keepasstest.SampleTree(), keepasstest.SamplePassword, keepasstest.Options{})
	require.NoError(t, err)
	db, err := keepass.Decode(data, keepasstest.SamplePassword)
	require.NoError(t, err)
	return db
}

func TestFind(t *testing.T) {
	db := sampleDB(t)
	tests := []struct {
		name     string
		criteria model.EntryCriteria
		wantUUID string
	}{
		{
			name:     "one level by title",
			criteria: model.EntryCriteria{GroupHierarchy: []string{"One"}, Title: "One-Entry"},
			wantUUID: keepasstest.OneEntryUUID,
		},
		{
			name:     "two levels ignores same title elsewhere",
			criteria: model.EntryCriteria{GroupHierarchy: []string{"One", "Two"}, Title: "Two-Entry"},
			wantUUID: keepasstest.TwoEntryUUID,
		},
		{
			name:     "title substring at first level finds decoy only there",
			criteria: model.EntryCriteria{GroupHierarchy: []string{"One"}, Title: "Two-Entry"},
			wantUUID: keepasstest.OneDecoyUUID,
		},
		{
			name:     "uuid alone at root",
			criteria: model.EntryCriteria{UUID: keepasstest.SampleEntry2UUID},
			wantUUID: keepasstest.SampleEntry2UUID,
		},
		{
			name:     "uuid lower case",
			criteria: model.EntryCriteria{UUID: "5765b5cf39794642a9283a2a9ecfc1ca"},
			wantUUID: keepasstest.SampleEntry2UUID,
		},
		{
			name:     "no criteria returns first entry",
			criteria: model.EntryCriteria{},
			wantUUID: keepasstest.SampleEntryUUID,
		},
		{
			name:     "first match in stored order",
			criteria: model.EntryCriteria{Title: "Sample Entry"},
			wantUUID: keepasstest.SampleEntryUUID,
		},
		{
			name:     "username substring",
			criteria: model.EntryCriteria{Username: "Michael"},
			wantUUID: keepasstest.SampleEntry2UUID,
		},
		{
			name:     "url substring",
			criteria: model.EntryCriteria{URL: "testform"},
			wantUUID: keepasstest.SampleEntry2UUID,
		},
		{
			name:     "whitespace criteria are absent",
			criteria: model.EntryCriteria{Title: "   ", Username: "\t", URL: " ", UUID: "  "},
			wantUUID: keepasstest.SampleEntryUUID,
		},
		{
			name:     "all criteria together",
			criteria: model.EntryCriteria{GroupHierarchy: []string{"One", "Two", "Three"}, Title: "Three", Username: "three", UUID: keepasstest.ThreeEntryUUID},
			wantUUID: keepasstest.ThreeEntryUUID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Find(db, tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUUID, e.UUID.String())
		})
	}
}

func TestFind_NotFound(t *testing.T) {
	db := sampleDB(t)

	_, err := Find(db, model.EntryCriteria{GroupHierarchy: []string{"One", "Missing", "Two"}})
	require.ErrorIs(t, err, ErrGroupNotFound)
	var gnf *GroupNotFoundError
	require.ErrorAs(t, err, &gnf)
	assert.Equal(t, "Missing", gnf.Segment)
	assert.Contains(t, err.Error(), "'Missing'")

	// имена групп сравниваются точно
	_, err = Find(db, model.EntryCriteria{GroupHierarchy: []string{"one"}})
	assert.ErrorIs(t, err, ErrGroupNotFound)

	// вторая группа "One" недостижима
	_, err = Find(db, model.EntryCriteria{GroupHierarchy: []string{"One"}, Title: "Shadow"})
	assert.ErrorIs(t, err, ErrEntryNotFound)

	// регистр подстроки важен
	_, err = Find(db, model.EntryCriteria{Title: "sample entry"})
	assert.ErrorIs(t, err, ErrEntryNotFound)

	// записи вложенных групп не просматриваются
	_, err = Find(db, model.EntryCriteria{Title: "One-Entry"})
	assert.ErrorIs(t, err, ErrEntryNotFound)

	// uuid записи из другой группы
	_, err = Find(db, model.EntryCriteria{UUID: keepasstest.OneEntryUUID})
	assert.ErrorIs(t, err, ErrEntryNotFound)

	// история не участвует в поиске
	_, err = Find(db, model.EntryCriteria{Title: "Old Sample"})
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestFind_InvalidUUID(t *testing.T) {
	db := sampleDB(t)
	for _, bad := range []string{"xyz", "5765B5CF", "5765B5CF39794642A9283A2A9ECFC1CAAA"} {
		_, err := Find(db, model.EntryCriteria{UUID: bad})
		assert.ErrorIs(t, err, ErrInvalidUUID, bad)
	}
}

func TestFind_ClosedDatabase(t *testing.T) {
	_, err := Find(&keepass.Database{}, model.EntryCriteria{})
	assert.ErrorIs(t, err, keepass.ErrOpenFailed)

	_, err = Find(nil, model.EntryCriteria{})
	assert.ErrorIs(t, err, keepass.ErrOpenFailed)
}

func TestFind_Repeatable(t *testing.T) {
	db := sampleDB(t)
	c := model.EntryCriteria{GroupHierarchy: []string{"One", "Two"}, Title: "Two"}
	first, err := Find(db, c)
	require.NoError(t, err)
	second, err := Find(db, c)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestContains(t *testing.T) {
	e := keepass.NewEntry(keepass.UUID{})
	e.Fields[keepass.FieldTitle] = "GitHub Token"
	e.Fields[keepass.FieldNotes] = ""

	assert.True(t, Contains(e, keepass.FieldTitle, "Hub"))
	assert.True(t, Contains(e, keepass.FieldTitle, ""))
	assert.True(t, Contains(e, keepass.FieldURL, " "))
	assert.False(t, Contains(e, keepass.FieldTitle, "hub"))
	assert.False(t, Contains(e, keepass.FieldURL, "http"))
	assert.False(t, Contains(e, keepass.FieldNotes, "x"))
}

func TestProject(t *testing.T) {
	db := sampleDB(t)
	e, err := Find(db, model.EntryCriteria{UUID: keepasstest.SampleEntry2UUID})
	require.NoError(t, err)

	assert.Equal(t, view.Entry{
		Title:    "Sample Entry #2",
		Username: "Michael321",
		Password: "12345",
		URL:      "http://keepass.info/help/kb/testform.html",
		Notes:    "",
		UUID:     "5765B5CF39794642A9283A2A9ECFC1CA",
	}, Project(e))
}
