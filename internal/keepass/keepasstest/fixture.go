package keepasstest

import (
	"KeePassLookup/internal/keepass"
)

// Параметры эталонной базы.
const (
	SamplePassword = "Pass@word!"

	SampleEntryUUID  = "3C5D1A43E5A84DBD9C3B0A0F71E2E7F1"
	SampleEntry2UUID = "5765B5CF39794642A9283A2A9ECFC1CA"
	OneEntryUUID     = "E866163BB5C33A42B177F9AF651D200F"
	OneDecoyUUID     = "81D9F8E2A4674F04AAB3B3A21F2D11C0"
	TwoEntryUUID     = "5052C4736386E54E82F7BFBB34E5757F"
	ThreeEntryUUID   = "2B3C4D5E6F708192A3B4C5D6E7F80910"
	ShadowEntryUUID  = "9A8B7C6D5E4F30211203F4E5D6C7B8A9"
)

// MustUUID разбирает hex-идентификатор и паникует на ошибке.
func MustUUID(s string) keepass.UUID {
	id, err := keepass.ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NewEntry создаёт запись; пустые значения в поля не попадают.
func NewEntry(id, title, username, password, url, notes string) *keepass.Entry {
	e := keepass.NewEntry(MustUUID(id))
	for k, v := range map[string]string{
		keepass.FieldTitle:    title,
		keepass.FieldUserName: username,
		keepass.FieldPassword: password,
		keepass.FieldURL:      url,
		keepass.FieldNotes:    notes,
	} {
		if v != "" {
			e.Fields[k] = v
		}
	}
	return e
}

// SampleTree строит эталонное дерево:
//
//	IntegrationTestDatabase
//	├── Sample Entry, Sample Entry #2 (с историей)
//	├── One
//	│   ├── One-Entry, Two-Entry (copy)
//	│   └── Two
//	│       ├── Two-Entry
//	│       └── Three
//	│           └── Three-Entry
//	└── One (второй группы с тем же именем поиск не достигает)
//	    └── Shadow-Entry
func SampleTree() *keepass.Group {
	sample2 := NewEntry(SampleEntry2UUID, "Sample Entry #2", "Michael321", "12345",
		"http://keepass.info/help/kb/testform.html", "")
	sample2.History = []*keepass.Entry{
		NewEntry(SampleEntry2UUID, "Sample Entry #2", "Michael321", "old-password-0",
			"http://keepass.info/help/kb/testform.html", ""),
		NewEntry(SampleEntry2UUID, "Old Sample Title", "Michael", "old-password-1",
			"http://keepass.info/", ""),
	}

	three := &keepass.Group{
		UUID:    MustUUID("D4C3B2A1F6E54D3CB2A1908F7E6D5C4B"),
		Name:    "Three",
		Entries: []*keepass.Entry{NewEntry(ThreeEntryUUID, "Three-Entry", "three", "three-pass", "", "")},
	}
	two := &keepass.Group{
		UUID:    MustUUID("C3B2A1F6E54D3CB2A1908F7E6D5C4BA0"),
		Name:    "Two",
		Entries: []*keepass.Entry{NewEntry(TwoEntryUUID, "Two-Entry", "two", "two-pass", "https://two.example.org/", "")},
		Groups:  []*keepass.Group{three},
	}
	one := &keepass.Group{
		UUID: MustUUID("B2A1F6E54D3CB2A1908F7E6D5C4BA0C1"),
		Name: "One",
		Entries: []*keepass.Entry{
			NewEntry(OneEntryUUID, "One-Entry", "one", "one-pass", "https://one.example.org/", "first level"),
			NewEntry(OneDecoyUUID, "Two-Entry (copy)", "two", "decoy-pass", "", ""),
		},
		Groups: []*keepass.Group{two},
	}
	shadow := &keepass.Group{
		UUID:    MustUUID("A1F6E54D3CB2A1908F7E6D5C4BA0C1D2"),
		Name:    "One",
		Entries: []*keepass.Entry{NewEntry(ShadowEntryUUID, "Shadow-Entry", "shadow", "shadow-pass", "", "")},
	}

	return &keepass.Group{
		UUID: MustUUID("0123456789ABCDEF0123456789ABCDEF"),
		Name: "IntegrationTestDatabase",
		Entries: []*keepass.Entry{
			NewEntry(SampleEntryUUID, "Sample Entry", "User Name", "Password", "http://keepass.info/", "Notes"),
			sample2,
		},
		Groups: []*keepass.Group{one, shadow},
	}
}
