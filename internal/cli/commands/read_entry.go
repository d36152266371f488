package commands

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"KeePassLookup/internal/cli/model"
	"KeePassLookup/internal/cli/model/view"
	"KeePassLookup/internal/config"
)

// groupList: повторяемый флаг -group.
type groupList []string

func (g *groupList) String() string { return strings.Join(*g, "/") }
func (g *groupList) Set(v string) error {
	*g = append(*g, v)
	return nil
}

var entryFields = map[string]func(e *view.Entry) string{
	"title":    func(e *view.Entry) string { return e.Title },
	"username": func(e *view.Entry) string { return e.Username },
	"password": func(e *view.Entry) string { return e.Password },
	"url":      func(e *view.Entry) string { return e.URL },
	"notes":    func(e *view.Entry) string { return e.Notes },
	"uuid":     func(e *view.Entry) string { return e.UUID },
}

type readEntryCmd struct{}

func (readEntryCmd) Name() string { return "read-entry" }
func (readEntryCmd) Description() string {
	return "Найти запись по группе и критериям и вывести её поля"
}
func (readEntryCmd) Usage() string {
	return "read-entry [-group <name>]... [-path <a/b/c>] [-title <s>] [-username <s>] [-url <s>] [-uuid <hex>] [-field <name>] [-json]"
}

func (readEntryCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("read-entry", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var groups groupList
	fs.Var(&groups, "group", "имя группы; повторяется для каждого уровня")
	path := fs.String("path", "", "иерархия групп через '/'")
	title := fs.String("title", "", "подстрока заголовка")
	username := fs.String("username", "", "подстрока имени пользователя")
	url := fs.String("url", "", "подстрока URL")
	uuid := fs.String("uuid", "", "UUID записи (32 hex-символа)")
	field := fs.String("field", "", "вывести только одно поле: title|username|password|url|notes|uuid")
	asJSON := fs.Bool("json", false, "вывести запись в JSON")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if fs.NArg() != 0 {
		return ErrUsage
	}
	if len(groups) > 0 && *path != "" {
		return ErrUsage
	}
	var pick func(e *view.Entry) string
	if *field != "" {
		f, ok := entryFields[strings.ToLower(*field)]
		if !ok || *asJSON {
			return ErrUsage
		}
		pick = f
	}

	hierarchy := []string(groups)
	if *path != "" {
		hierarchy = strings.Split(*path, "/")
	}
	criteria := &model.EntryCriteria{
		GroupHierarchy: hierarchy,
		Title:          *title,
		Username:       *username,
		URL:            *url,
		UUID:           *uuid,
	}

	settings, err := databaseSettings(cfg)
	if err != nil {
		return err
	}
	svc, done, err := newEntryService(cfg)
	if err != nil {
		return err
	}
	defer done()

	e, err := svc.ReadEntry(ctx, settings, criteria)
	if err != nil {
		return err
	}

	switch {
	case pick != nil:
		fmt.Fprintln(Out, pick(e))
	case *asJSON:
		enc := json.NewEncoder(Out)
		enc.SetIndent("", "  ")
		return enc.Encode(e)
	default:
		fmt.Fprintf(Out, "title:     %s\n", e.Title)
		fmt.Fprintf(Out, "username:  %s\n", e.Username)
		fmt.Fprintf(Out, "password:  %s\n", e.Password)
		fmt.Fprintf(Out, "url:       %s\n", e.URL)
		fmt.Fprintf(Out, "notes:     %s\n", e.Notes)
		fmt.Fprintf(Out, "uuid:      %s\n", e.UUID)
	}
	return nil
}

func init() { RegisterCmd(readEntryCmd{}) }
