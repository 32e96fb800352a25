package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jask/attredit/internal/config"
	"github.com/jask/attredit/internal/database"
	"github.com/jask/attredit/internal/identity"
	"github.com/jask/attredit/internal/prefs"
	"github.com/jask/attredit/internal/secrets"
	"github.com/jask/attredit/internal/tui"
	"github.com/jask/attredit/internal/twin"
	"github.com/jask/attredit/internal/workflow"
)

var (
	cfg         config.Config
	backendFlag string
	addrFlag    string
	profileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "attredit",
	Short: "Edit your profile attributes from the terminal",
	Long: `attredit shows the attributes of the signed-in user and edits one at a
time with a control that matches its type.

The store is either the local sandbox (sqlite) or a REST service such as the
one started by "attredit serve".`,
	PersistentPreRun: loadConfig,
	Run:              runScreen,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the sandbox store over REST",
	Long:  `Start the sandbox twin: a REST server over the local sqlite store, with dev tokens and fault injection.`,
	Run:   runServe,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the bearer token used by the http backend",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set <token>",
	Short: "Store a bearer token for the configured profile",
	Long:  `Store a bearer token for store.profile. With --profile the token is stored under that profile and store.profile is saved to the config file.`,
	Args:  cobra.ExactArgs(1),
	Run:   runTokenSet,
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the bearer token for the configured profile",
	Run:   runTokenClear,
}

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Maintain the local sandbox store",
}

var sandboxResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every user, attribute and session in the sandbox",
	Run:   runSandboxReset,
}

var sandboxUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List sandbox users and their open sessions",
	Run:   runSandboxUsers,
}

var sandboxExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the sandbox user's attributes to the seed file",
	Long:  `Write the sandbox user's attributes to seed.json in the config directory. Keys in the seed that the user lacks are added on the next start.`,
	Run:   runSandboxExport,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&backendFlag, "backend", "b", "", "Store backend (sandbox, http); overrides store.backend")
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address; overrides serve.addr")
	tokenSetCmd.Flags().StringVar(&profileFlag, "profile", "", "Profile to store the token under; saved as store.profile")

	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenClearCmd)
	sandboxCmd.AddCommand(sandboxResetCmd)
	sandboxCmd.AddCommand(sandboxExportCmd)
	sandboxCmd.AddCommand(sandboxUsersCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(sandboxCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("attredit: %v", err)
	}
}

func loadConfig(cmd *cobra.Command, args []string) {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if backendFlag != "" {
		cfg.Store.Backend = backendFlag
	}
}

func runScreen(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, closeLog := fileLogger(cfg.Log)
	defer closeLog()

	var (
		store   workflow.Store
		session workflow.Session
	)
	switch cfg.Store.Backend {
	case config.BackendHTTP:
		token, err := resolveToken(cfg.Store, time.Now())
		if err != nil {
			log.Fatalf("token: %v", err)
		}
		client, err := identity.NewClient(cfg.Store.BaseURL, token)
		if err != nil {
			log.Fatalf("client: %v", err)
		}
		store, session = client, client
	case config.BackendSandbox:
		db := openSandbox(cfg.Sandbox)
		defer db.Close()
		sb, closeSession, err := sandboxSession(ctx, db, cfg.Sandbox.Username, logger)
		if err != nil {
			log.Fatalf("sandbox sign in: %v", err)
		}
		defer closeSession()
		store, session = sb, sb
	default:
		log.Fatalf("unknown backend %q", cfg.Store.Backend)
	}
	logger.Info("starting screen", "backend", cfg.Store.Backend, "user", session.Username())

	wf := workflow.New(store, workflow.WithSession(session), workflow.WithLogger(logger))
	p := tea.NewProgram(tui.New(ctx, wf, cfg.UI, logger), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

func runServe(cmd *cobra.Command, args []string) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}))

	db := openSandbox(cfg.Sandbox)
	defer db.Close()

	addr := cfg.Serve.Addr
	if addrFlag != "" {
		addr = addrFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := twin.New(identity.NewDirectory(db), []byte(cfg.Sandbox.Secret), logger)
	if err := s.Serve(ctx, addr); err != nil {
		logger.Error("serve", "err", err)
		os.Exit(1)
	}
}

func runTokenSet(cmd *cobra.Command, args []string) {
	if profileFlag != "" {
		cfg.Store.Profile = profileFlag
	}
	tok := bearerToken(args[0])
	if err := tok.Check(time.Now()); err != nil {
		log.Fatalf("token: %v", err)
	}
	if err := secrets.StoreToken(cfg.Store.Profile, tok); err != nil {
		log.Fatalf("store token: %v", err)
	}
	if profileFlag != "" {
		if err := config.Save(cfg); err != nil {
			log.Fatalf("save config: %v", err)
		}
	}

	msg := fmt.Sprintf("token stored for profile %q", cfg.Store.Profile)
	if tok.Username != "" {
		msg += " (user " + tok.Username + ")"
	}
	if !tok.ExpiresAt.IsZero() {
		msg += ", expires " + tok.ExpiresAt.Local().Format(time.DateTime)
	}
	fmt.Println(msg)
}

func runTokenClear(cmd *cobra.Command, args []string) {
	if err := secrets.DeleteToken(cfg.Store.Profile); err != nil {
		log.Fatalf("delete token: %v", err)
	}
	fmt.Printf("token cleared for profile %q\n", cfg.Store.Profile)
}

func runSandboxReset(cmd *cobra.Command, args []string) {
	db := openSandbox(cfg.Sandbox)
	defer db.Close()
	if err := database.Reset(context.Background(), db); err != nil {
		log.Fatalf("reset: %v", err)
	}
	fmt.Println("sandbox reset")
}

func runSandboxUsers(cmd *cobra.Command, args []string) {
	db := openSandbox(cfg.Sandbox)
	defer db.Close()
	accounts, err := identity.NewDirectory(db).Accounts(context.Background())
	if err != nil {
		log.Fatalf("users: %v", err)
	}
	if len(accounts) == 0 {
		fmt.Println("no sandbox users")
		return
	}
	for _, acct := range accounts {
		fmt.Printf("%s\t%d open session(s)\n", acct.Username, len(acct.Sessions))
		for _, s := range acct.Sessions {
			fmt.Printf("  %s\tsince %s\n", s.ID, s.CreatedAt.Local().Format(time.DateTime))
		}
	}
}

func runSandboxExport(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	db := openSandbox(cfg.Sandbox)
	defer db.Close()
	sb, err := identity.NewDirectory(db).SignIn(ctx, cfg.Sandbox.Username)
	if err != nil {
		log.Fatalf("sandbox sign in: %v", err)
	}
	defer sb.SignOut(ctx)
	attrs, err := sb.FetchAttributes(ctx)
	if err != nil {
		log.Fatalf("fetch attributes: %v", err)
	}
	path, err := prefs.SaveSeed(attrs)
	if err != nil {
		log.Fatalf("save seed: %v", err)
	}
	fmt.Printf("wrote %d attributes to %s\n", len(attrs), path)
}

// sandboxSession signs username in to the sandbox and applies the seed file.
// The returned func revokes the session.
func sandboxSession(ctx context.Context, db *sql.DB, username string, logger *slog.Logger) (*identity.Sandbox, func(), error) {
	sb, err := identity.NewDirectory(db).SignIn(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if err := applySeed(ctx, sb, logger); err != nil {
		logger.Warn("seed not applied", "err", err)
	}
	return sb, func() {
		if err := sb.SignOut(ctx); err != nil {
			logger.Warn("sandbox sign out", "err", err)
		}
	}, nil
}

// applySeed adds the seed file's attributes that the sandbox user lacks.
func applySeed(ctx context.Context, sb *identity.Sandbox, logger *slog.Logger) error {
	seed, err := prefs.LoadSeed()
	if err != nil || len(seed) == 0 {
		return err
	}
	have, err := sb.FetchAttributes(ctx)
	if err != nil {
		return err
	}
	for _, a := range prefs.Missing(seed, have) {
		if _, err := sb.UpdateAttribute(ctx, a); err != nil {
			return fmt.Errorf("seed %s: %w", a.Key, err)
		}
		logger.Info("seeded attribute", "key", a.Key)
	}
	return nil
}

// resolveToken prefers the configured env var over the secrets file. A token
// whose exp claim has passed is refused either way.
func resolveToken(sc config.StoreConfig, now time.Time) (string, error) {
	if env := strings.TrimSpace(sc.TokenEnv); env != "" {
		if v := os.Getenv(env); strings.TrimSpace(v) != "" {
			tok := bearerToken(v)
			if err := tok.Check(now); err != nil {
				return "", fmt.Errorf("$%s: %w", env, err)
			}
			return tok.Value, nil
		}
	}
	tok, err := secrets.FetchToken(sc.Profile, now)
	switch {
	case errors.Is(err, secrets.ErrExpired):
		return "", fmt.Errorf("profile %q (run: attredit token set <token>): %w", sc.Profile, err)
	case err != nil:
		return "", fmt.Errorf("no token in $%s or profile %q (run: attredit token set <token>): %w", sc.TokenEnv, sc.Profile, err)
	}
	return tok.Value, nil
}

// bearerToken reads the claims of a raw token. Opaque tokens carry none.
func bearerToken(raw string) secrets.Token {
	tok := secrets.Token{Value: strings.TrimSpace(raw)}
	if claims, ok := identity.PeekClaims(tok.Value); ok {
		tok.Username = identity.PeekUsername(tok.Value)
		tok.ExpiresAt = claims.Expiry()
	}
	return tok
}

func openSandbox(sc config.SandboxConfig) *sql.DB {
	if err := os.MkdirAll(filepath.Dir(sc.DatabasePath), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}
	if err := database.RunMigrations(sc.DatabasePath, sc.MigrationsPath); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := database.Open(sc.DatabasePath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return db
}

// fileLogger logs to lc.Path since stdout belongs to the screen. Logging is
// dropped if the file cannot be opened.
func fileLogger(lc config.LogConfig) (*slog.Logger, func()) {
	opts := &slog.HandlerOptions{Level: parseLevel(lc.Level)}
	if lc.Path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() {}
	}
	if err := os.MkdirAll(filepath.Dir(lc.Path), 0o755); err != nil {
		log.Printf("warn: logging disabled: %v", err)
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() {}
	}
	f, err := os.OpenFile(lc.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		log.Printf("warn: logging disabled: %v", err)
		return slog.New(slog.NewTextHandler(io.Discard, opts)), func() {}
	}
	return slog.New(slog.NewTextHandler(f, opts)), func() { _ = f.Close() }
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}
