// ABOUTME: Entry point for coven-gradebook, the Matrix gradebook bot
// ABOUTME: Subcommands: serve, init, seed, audit and version

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/coven-gradebook/internal/analysis"
	"github.com/2389/coven-gradebook/internal/chart"
	"github.com/2389/coven-gradebook/internal/config"
	"github.com/2389/coven-gradebook/internal/conversation"
	"github.com/2389/coven-gradebook/internal/matrix"
	"github.com/2389/coven-gradebook/internal/roster"
	"github.com/2389/coven-gradebook/internal/session"
	"github.com/2389/coven-gradebook/internal/store"
)

// Version is set at build time.
var version = "dev"

const banner = `
                                                     _            _
  ___ _____   _____ _ __         __ _ _ __ __ _  __| | ___ _ __ | |__   ___   ___ | | __
 / __/ _ \ \ / / _ \ '_ \ _____ / _' | '__/ _' |/ _' |/ _ \ '_ \| '_ \ / _ \ / _ \| |/ /
| (_| (_) \ V /  __/ | | |_____| (_| | | | (_| | (_| |  __/ |_) | |_) | (_) | (_) |   <
 \___\___/ \_/ \___|_| |_|      \__, |_|  \__,_|\__,_|\___|_.__/|_.__/ \___/ \___/|_|\_\
                                |___/
`

// getConfigPath returns the path to the gradebook config file.
// Priority: GRADEBOOK_CONFIG env var > XDG_CONFIG_HOME/coven/gradebook.yaml > ~/.config/coven/gradebook.yaml
func getConfigPath() string {
	if envPath := os.Getenv("GRADEBOOK_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gradebook.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven", "gradebook.yaml")
}

// getDataPath returns the path to the coven data directory.
// Priority: XDG_DATA_HOME/coven > ~/.local/share/coven
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "coven")
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: coven-gradebook <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve                Run the bot")
	fmt.Fprintln(w, "  init                 Create a new config file interactively")
	fmt.Fprintln(w, "  seed <roster.toml>   Load schools, classes and accounts from a roster")
	fmt.Fprintln(w, "  audit [flags]        List audit log entries")
	fmt.Fprintln(w, "      --since, -s <24h|RFC3339>  --role, -r <role>  --actor, -a <id>")
	fmt.Fprintln(w, "      --action <action>  --target, -t <id>  --limit, -n <n>")
	fmt.Fprintln(w, "  version              Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stdout)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(os.Stdin, os.Stdout, getConfigPath())
	case "seed":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: coven-gradebook seed <roster.toml>")
			os.Exit(1)
		}
		err = runSeed(ctx, os.Args[2])
	case "audit":
		err = runAudit(ctx, os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()
	dataPath := getDataPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Database:   %s\n", cfg.Database.Driver)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver: %s\n", cfg.Matrix.Homeserver)
	green.Print("    ▶ ")
	fmt.Printf("Username:   %s\n", cfg.Matrix.Username)
	green.Print("    ▶ ")
	fmt.Printf("Charts:     %d workers\n", cfg.Charts.Workers)
	if cfg.Matrix.RecoveryKey != "" {
		green.Print("    ▶ ")
		fmt.Println("Encryption: enabled")
	}
	if !cfg.Analysis.Enabled {
		yellow.Println("    ! commentary disabled")
	}
	fmt.Println()

	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	bridge, err := matrix.NewBridge(cfg.Matrix, logger)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := bridge.Login(ctx); err != nil {
		return fmt.Errorf("matrix login: %w", err)
	}

	if cfg.Matrix.RecoveryKey != "" {
		if err := os.MkdirAll(dataPath, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		enc, err := matrix.EnableEncryption(ctx, bridge.Client(), cfg.Matrix.RecoveryKey, dataPath, logger)
		if err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}
		defer enc.Close()
	} else {
		logger.Info("encryption disabled (no recovery key)")
	}

	renderer := chart.NewRenderer(chart.NewPool(cfg.Charts.Workers), cfg.Charts.TempDir, logger)
	svc := conversation.New(
		db,
		bridge,
		renderer,
		analysis.New(cfg.Analysis, logger),
		session.NewStore(cfg.Sessions.Shards),
		logger,
	)

	logger.Info("starting coven-gradebook",
		"config", configPath,
		"driver", cfg.Database.Driver,
		"homeserver", cfg.Matrix.Homeserver,
	)
	return bridge.Run(ctx, svc)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (*store.SQLStore, error) {
	dsn := cfg.Path
	if cfg.Driver == store.DriverPostgres {
		dsn = cfg.URL
	}
	db, err := store.Open(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return db, nil
}

func runSeed(ctx context.Context, rosterPath string) error {
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	setupLogger(cfg.Logging)

	r, err := roster.Load(rosterPath)
	if err != nil {
		return err
	}

	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.ImportRoster(ctx, r)
	if err != nil {
		return fmt.Errorf("importing roster: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("    ✓ Roster %s imported\n", rosterPath)
	fmt.Printf("      schools:  %d\n", stats.Schools)
	fmt.Printf("      teachers: %d\n", stats.Teachers)
	fmt.Printf("      classes:  %d\n", stats.Classes)
	fmt.Printf("      subjects: %d\n", stats.Subjects)
	fmt.Printf("      students: %d\n", stats.Students)
	return nil
}

// initAnswers are the values gathered by runInit.
type initAnswers struct {
	DatabasePath string
	Homeserver   string
	Username     string
	Password     string
	RecoveryKey  string
	APIKey       string
}

func runInit(in io.Reader, out io.Writer, configPath string) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(out, banner)
	fmt.Fprintln(out, "    Interactive Setup")
	fmt.Fprintln(out, "    -----------------")
	fmt.Fprintln(out)

	reader := bufio.NewReader(in)
	ask := func(prompt, def string) string {
		green.Fprint(out, "    ▶ ")
		if def != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, def)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return def
		}
		return answer
	}

	if _, err := os.Stat(configPath); err == nil {
		yellow.Fprintf(out, "    Config already exists at %s\n", configPath)
		if strings.ToLower(ask("Overwrite? [y/N]", "")) != "y" {
			fmt.Fprintln(out, "    Aborted.")
			return nil
		}
		fmt.Fprintln(out)
	}

	answers := initAnswers{
		DatabasePath: ask("SQLite database path", filepath.Join(getDataPath(), "gradebook.db")),
		Homeserver:   ask("Matrix homeserver URL", "https://matrix.org"),
		Username:     ask("Matrix bot username", ""),
		Password:     ask("Matrix bot password", ""),
		RecoveryKey:  ask("Matrix recovery key (optional, for E2EE)", ""),
		APIKey:       ask("OpenAI API key (optional, enables commentary)", ""),
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(renderConfig(answers)), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintln(out)
	green.Fprintf(out, "    ✓ Config written to %s\n", configPath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "    Next steps:")
	fmt.Fprintln(out, "    1. Run: coven-gradebook seed roster.toml")
	fmt.Fprintln(out, "    2. Run: coven-gradebook serve")
	fmt.Fprintln(out)
	return nil
}

// renderConfig produces the YAML written by init. Secrets are quoted so
// YAML does not reinterpret them.
func renderConfig(a initAnswers) string {
	var b strings.Builder
	b.WriteString("# coven-gradebook configuration\n# Generated by coven-gradebook init\n\n")
	fmt.Fprintf(&b, "database:\n  driver: sqlite\n  path: %q\n\n", a.DatabasePath)
	fmt.Fprintf(&b, "matrix:\n  homeserver: %q\n  username: %q\n  password: %q\n", a.Homeserver, a.Username, a.Password)
	if a.RecoveryKey != "" {
		fmt.Fprintf(&b, "  recovery_key: %q\n", a.RecoveryKey)
	}
	b.WriteString("  # Only respond in these rooms (empty = all joined rooms)\n  allowed_rooms: []\n")
	b.WriteString("  typing_indicator: true\n  dedupe_ttl: 10m\n\n")
	if a.APIKey != "" {
		fmt.Fprintf(&b, "analysis:\n  enabled: true\n  api_key: %q\n  model: %s\n  timeout: 30s\n\n", a.APIKey, config.DefaultModel)
	} else {
		b.WriteString("analysis:\n  enabled: false\n\n")
	}
	b.WriteString("charts:\n  workers: 2\n\n")
	b.WriteString("logging:\n  level: info\n  format: text\n")
	return b.String()
}
