package model

// DatabaseSettings: что нужно для открытия файла базы.
type DatabaseSettings struct {
	DatabasePath   string
	MasterPassword string // пустой пароль допустим
}

// EntryCriteria: критерии поиска одной записи.
// Пустые и пробельные значения считаются незаданными.
type EntryCriteria struct {
	GroupHierarchy []string // путь от корневой группы, по точным именам
	Title          string   // подстрока Title
	Username       string   // подстрока UserName
	URL            string   // подстрока URL
	UUID           string   // 32 hex-символа, точное совпадение
}
