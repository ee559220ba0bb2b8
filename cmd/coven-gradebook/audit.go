// ABOUTME: The audit subcommand, a read-only listing of the account audit log
// ABOUTME: Filters by time, actor, action and target like the admin listings

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/coven-gradebook/internal/config"
	"github.com/2389/coven-gradebook/internal/store"
)

func runAudit(ctx context.Context, args []string) error {
	filter, err := parseAuditArgs(args, time.Now())
	if err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	setupLogger(cfg.Logging)

	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.ListAuditLog(ctx, filter)
	if err != nil {
		return err
	}
	printAuditLog(os.Stdout, entries)
	return nil
}

// parseAuditArgs builds a filter from the audit flags. --since takes a
// duration back from now or an RFC 3339 time.
func parseAuditArgs(args []string, now time.Time) (store.AuditFilter, error) {
	var f store.AuditFilter

	for i := 0; i < len(args); i++ {
		flag := args[i]
		if i+1 >= len(args) {
			return f, fmt.Errorf("%s requires a value", flag)
		}
		value := args[i+1]
		i++

		switch flag {
		case "--since", "-s":
			since, err := parseSince(value, now)
			if err != nil {
				return f, err
			}
			f.Since = &since
		case "--role", "-r":
			role := store.Role(value)
			if !role.Valid() {
				return f, fmt.Errorf("unknown role: %s (use manager, teacher, student)", value)
			}
			f.ActorRole = &role
		case "--actor", "-a":
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return f, fmt.Errorf("invalid actor id: %s", value)
			}
			f.ActorID = &id
		case "--action":
			action := store.AuditAction(value)
			if !slices.Contains(store.ValidAuditActions, action) {
				return f, fmt.Errorf("unknown action: %s", value)
			}
			f.Action = &action
		case "--target", "-t":
			target := value
			f.TargetID = &target
		case "--limit", "-n":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return f, fmt.Errorf("invalid limit: %s", value)
			}
			f.Limit = n
		default:
			return f, fmt.Errorf("unknown audit flag: %s", flag)
		}
	}
	return f, nil
}

func parseSince(value string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(value); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since: %s (use a duration like 24h or an RFC 3339 time)", value)
	}
	return t, nil
}

func printAuditLog(out io.Writer, entries []store.AuditEntry) {
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(out)
	cyan.Fprintln(out, "  Audit Log")
	cyan.Fprintln(out, "  ---------")

	if len(entries) == 0 {
		fmt.Fprintln(out, "  (no entries)")
		fmt.Fprintln(out)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  TIME\tACTOR\tACTION\tTARGET\tDETAIL")
	fmt.Fprintln(w, "  ----\t-----\t------\t------\t------")
	for _, e := range entries {
		fmt.Fprintf(w, "  %s\t%s/%d\t%s\t%s/%s\t%s\n",
			e.Timestamp.Format("Jan 02 15:04"),
			e.ActorRole, e.ActorID,
			e.Action,
			e.TargetType, e.TargetID,
			formatDetail(e.Detail),
		)
	}
	w.Flush()
	fmt.Fprintln(out)
}

// formatDetail renders detail as sorted key=value pairs.
func formatDetail(detail map[string]any) string {
	if len(detail) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, detail[k]))
	}
	return strings.Join(parts, " ")
}
