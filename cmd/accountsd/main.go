package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	accounts "github.com/castlebay/go-accounts"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("accountsd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("============")
	fmt.Println(print.MaybeHighlightJSON(cfg))
	fmt.Println("============")

	ctx := context.Background()

	bunDB, dialect, err := openDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	if err := bunDB.PingContext(ctx); err != nil {
		log.Fatal(err)
	}

	if err := accounts.RunMigrations(ctx, bunDB.DB, dialect); err != nil {
		log.Fatal(err)
	}

	repo := accounts.NewRepositoryManager(bunDB)
	repo.MustValidate()

	tokens := accounts.NewTokenService(cfg, lgr.GetLogger("tokens"))

	hookLog := lgr.GetLogger("hooks")
	manager := accounts.NewUserManager(repo, tokens,
		accounts.WithLogger(lgr.GetLogger("users")),
		accounts.WithRegistrationListener(func(ctx context.Context, user *accounts.User) {
			hookLog.Info("user has registered",
				"id", user.ID.String(),
				"email", user.Email,
			)
		}),
	)

	auther := accounts.NewAuthenticator(manager, tokens).
		WithLogger(lgr.GetLogger("auth"))

	httpAuth, err := accounts.NewHTTPAuthenticator(auther, tokens, cfg)
	if err != nil {
		log.Fatal(err)
	}
	httpAuth.Logger = lgr.GetLogger("auth:http")

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
		}))
	})

	protected := httpAuth.ProtectedRoute(cfg, nil)

	accounts.RegisterAccountRoutes(srv.Router(), protected,
		accounts.WithUserManager(manager),
		accounts.WithAuther(auther),
		accounts.WithControllerLogger(lgr.GetLogger("http")),
		accounts.WithSessionContextKey(cfg.GetContextKey()),
	)

	srv.Serve(cfg.ListenAddr)

	sig := WaitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())
}

// openDB picks the driver from the DSN scheme: postgres URLs use pgdriver,
// everything else goes through the sqlite shim.
func openDB(dsn string) (*bun.DB, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		return bun.NewDB(sqldb, pgdialect.New()), "postgres", nil
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, "", err
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), "sqlite3", nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
