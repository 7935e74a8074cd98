package main

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gidroatlas/atlas-service/internal/adapter/registry"
	"github.com/gidroatlas/atlas-service/internal/catalog"
	"github.com/gidroatlas/atlas-service/internal/config"
	"github.com/gidroatlas/atlas-service/internal/domain"
	"github.com/gidroatlas/atlas-service/internal/observability"
	"github.com/gidroatlas/atlas-service/internal/session"
)

var (
	errNotLoggedIn   = errors.New("not logged in: run atlasctl login")
	errSessionExpiry = errors.New("session expired: run atlasctl login")
	errNotExpert     = errors.New("this command requires an expert account")
)

// app is the state shared by all subcommands, built once flags are parsed.
type app struct {
	apiURL     string
	sessionDir string
	verbose    bool

	cfg     *config.Config
	logger  *slog.Logger
	store   *session.Store
	catalog *catalog.Catalog
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "atlasctl",
		Short: "Browse and edit the GidroAtlas water object registry",
		Long: `atlasctl talks to the GidroAtlas registry API.

Anyone can list, sort, show and chart objects. Filters, edits, deletes and
priority records require an expert account (see atlasctl login).`,
		SilenceUsage:      true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return a.setup() },
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "Registry API base URL (default: API_BASE_URL or the deployed backend)")
	root.PersistentFlags().StringVar(&a.sessionDir, "session-dir", "", "Directory holding the saved session (default: SESSION_DIR)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log registry requests")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.dictsCmd(),
		a.objectsCmd(),
		a.priorityCmd(),
		a.statsCmd(),
	)
	return root
}

func (a *app) setup() error {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIBaseURL = a.apiURL
	}
	if a.sessionDir != "" {
		cfg.SessionDir = a.sessionDir
	}
	// Logs go to stderr; stdout carries command output.
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	metrics := observability.NewMetricsWithRegisterer(prometheus.NewRegistry())
	client := registry.NewClient(cfg.APIBaseURL, cfg.APITimeout, cfg.APIRateLimit, a.logger, metrics)
	a.store = session.NewStore(cfg.SessionDir, a.logger)
	a.catalog = catalog.New(registry.NewCachedClient(client, cfg.APICacheSize, cfg.APICacheTTL), a.store, a.logger)
	return nil
}

// currentSession returns the saved session, possibly unauthenticated.
func (a *app) currentSession() session.Session {
	sess, err := a.catalog.CurrentSession()
	if err != nil {
		a.logger.Warn("failed to read saved session", "path", a.store.Path(), "error", err)
		return session.Session{}
	}
	return sess
}

// requireExpert returns the saved session if it belongs to a logged-in
// expert whose access token has not expired.
func (a *app) requireExpert() (session.Session, error) {
	sess := a.currentSession()
	switch {
	case !sess.Authenticated():
		return session.Session{}, errNotLoggedIn
	case sess.Expired(domain.Now()):
		return session.Session{}, errSessionExpiry
	case !sess.IsExpert():
		return session.Session{}, errNotExpert
	}
	return sess, nil
}

// expiryText formats the access token's expiry for display.
func expiryText(sess session.Session) string {
	exp, err := sess.AccessExpiresAt()
	if err != nil {
		return "unknown"
	}
	return exp.Local().Format(time.DateTime)
}
