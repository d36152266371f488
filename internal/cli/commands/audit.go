package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"KeePassLookup/internal/cli/bootstrap"
	"KeePassLookup/internal/cli/service"
	"KeePassLookup/internal/config"
)

type auditCmd struct{}

func (auditCmd) Name() string        { return "audit" }
func (auditCmd) Description() string { return "Показать последние обращения из журнала" }
func (auditCmd) Usage() string       { return "audit [-n <count>]" }

func (auditCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	n := fs.Int("n", 20, "сколько записей показать")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 || *n <= 0 {
		return ErrUsage
	}

	journal, done, err := bootstrap.OpenLookupJournal(cfg)
	if err != nil {
		return err
	}
	defer done()
	if journal == nil {
		return fmt.Errorf("%w: lookup journal is not configured (set AUDIT_DATABASE_URI or -audit-db)", service.ErrInvalidArgument)
	}

	recs, err := journal.Recent(ctx, *n)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(Out, "No lookups recorded")
		return nil
	}
	for _, r := range recs {
		result := "ok " + r.EntryUUID
		if r.ErrorKind != "" {
			result = r.ErrorKind
		}
		group := r.GroupPath
		if group == "" {
			group = "/"
		}
		fmt.Fprintf(Out, "%s  %-40s %-20s %-30s %s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.DatabasePath, group,
			strings.TrimSpace(r.Criteria), result)
	}
	return nil
}

func init() { RegisterCmd(auditCmd{}) }
