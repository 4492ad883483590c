package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-blog-server/auth"
	"github.com/jrsteele09/go-blog-server/internal/config"
	"github.com/jrsteele09/go-blog-server/internal/database"
	"github.com/jrsteele09/go-blog-server/posts"
	postpostgres "github.com/jrsteele09/go-blog-server/posts/postgres"
	fakepostrepo "github.com/jrsteele09/go-blog-server/posts/repofake"
	"github.com/jrsteele09/go-blog-server/server"
	sessionpostgres "github.com/jrsteele09/go-blog-server/sessions/postgres"
	fakesessionrepo "github.com/jrsteele09/go-blog-server/sessions/repofake"
	"github.com/jrsteele09/go-blog-server/token"
	"github.com/jrsteele09/go-blog-server/token/keys"
	userpostgres "github.com/jrsteele09/go-blog-server/users/postgres"
	fakeuserrepo "github.com/jrsteele09/go-blog-server/users/repofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// errPanicRecovered makes main restart the server instead of exiting
var errPanicRecovered = errors.New("panic recovered")

func main() {
	if err := superviseRun(run, time.Second); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

// superviseRun calls run until it stops cleanly or fails with anything but a
// recovered panic, pausing between restarts.
func superviseRun(run func() error, pause time.Duration) error {
	for {
		err := run()
		if err == nil {
			return nil
		}
		if !errors.Is(err, errPanicRecovered) {
			return err
		}
		log.Error().Err(err).Msg("Server crashed, restarting")
		time.Sleep(pause)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errPanicRecovered
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	postRepo, authRepos, closeDB, err := newRepos(ctx, c)
	if err != nil {
		return err
	}
	defer closeDB()

	tokens, err := newTokenManager(c)
	if err != nil {
		return err
	}

	authService, err := auth.NewAuthService(authRepos, tokens,
		auth.WithMinPasswordLength(c.GetMinPasswordLength()),
		auth.WithMaxSessionAge(c.GetMaxSessionAge()),
	)
	if err != nil {
		return err
	}

	blogServer, err := server.New(c, authService, posts.NewService(postRepo))
	if err != nil {
		return err
	}
	blogServer.StartSessionReaper(ctx, c.GetSessionCleanupInterval())

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           blogServer,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-waitForStopSignal():
	}
	cancel()
	return shutdown(httpServer)
}

// newRepos connects to Postgres when DATABASE_URL is set, otherwise everything lives in memory.
func newRepos(ctx context.Context, c config.Config) (posts.Repo, auth.Repos, func(), error) {
	dsn := c.GetDatabaseURL()
	if dsn == "" {
		log.Warn().Msg("DATABASE_URL not set, using in-memory storage; data is lost on restart")
		repos := auth.Repos{
			Users:    fakeuserrepo.NewFakeUserRepo(),
			Sessions: fakesessionrepo.NewFakeSessionRepo(),
		}
		return fakepostrepo.NewFakePostRepo(), repos, func() {}, nil
	}

	db, err := database.Open(ctx, dsn)
	if err != nil {
		return nil, auth.Repos{}, nil, fmt.Errorf("database.Open: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
	logSchemaVersion(db)

	repos := auth.Repos{
		Users:    userpostgres.New(db),
		Sessions: sessionpostgres.New(db),
	}
	return postpostgres.New(db), repos, closeDB, nil
}

func logSchemaVersion(db *sql.DB) {
	version, dirty, err := database.Version(db)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read schema version")
		return
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Database ready")
}

func newTokenManager(c config.Config) (*token.Manager, error) {
	keyPair, err := keys.LoadOrGenerate(c.GetSigningKeyID(), c.GetSigningKeyFile())
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}
	return token.New(keys.NewKeyPairSigner(keyPair),
		token.WithIssuer(c.GetBaseURL()),
		token.WithAccessTokenExpiry(c.GetAccessTokenExpiry()),
		token.WithRefreshTokenLength(c.GetRefreshTokenLength()),
	), nil
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
