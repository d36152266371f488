package commands

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"KeePassLookup/internal/config"
)

type dbInfoCmd struct{}

func (dbInfoCmd) Name() string        { return "db-info" }
func (dbInfoCmd) Description() string { return "Расшифровать базу и показать сводку без секретов" }
func (dbInfoCmd) Usage() string       { return "db-info [-json]" }

func (dbInfoCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("db-info", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	asJSON := fs.Bool("json", false, "вывести сводку в JSON")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return ErrUsage
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

	info, err := svc.Inspect(ctx, settings)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(Out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintf(Out, "path:       %s\n", info.Path)
	fmt.Fprintf(Out, "version:    %s\n", info.Version)
	if info.Generator != "" {
		fmt.Fprintf(Out, "generator:  %s\n", info.Generator)
	}
	fmt.Fprintf(Out, "root:       %s\n", info.RootName)
	fmt.Fprintf(Out, "groups:     %d\n", info.Groups)
	fmt.Fprintf(Out, "entries:    %d\n", info.Entries)
	return nil
}

func init() { RegisterCmd(dbInfoCmd{}) }
