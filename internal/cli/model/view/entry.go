package view

// Entry: найденная запись в виде для вывода. Отсутствующие поля пустые.
type Entry struct {
	Title    string `json:"title"`
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url"`
	Notes    string `json:"notes"`
	UUID     string `json:"uuid"` // hex в верхнем регистре
}

// DatabaseInfo: сводка по базе для db-info; секретов не содержит.
type DatabaseInfo struct {
	Path      string `json:"path"`
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
	RootName  string `json:"root"`
	Groups    int    `json:"groups"`
	Entries   int    `json:"entries"`
}
