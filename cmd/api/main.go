package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dewey/group-reminder/cache"
	"github.com/dewey/group-reminder/group"
	"github.com/dewey/group-reminder/migrations"
	"github.com/dewey/group-reminder/notification"
	"github.com/dewey/group-reminder/reminder"
	"github.com/dewey/group-reminder/service/trigger"
	"github.com/go-chi/chi/v5"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/mattn/go-mastodon"
	_ "github.com/mattn/go-sqlite3"
	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type maxBytesHandler struct {
	h http.Handler
	n int64
}

func (h *maxBytesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.n)
	h.h.ServeHTTP(w, r)
}

func main() {
	fs := flag.NewFlagSet("group-reminder", flag.ExitOnError)
	var (
		environment          = fs.String("environment", "develop", "the environment we are running in")
		port                 = fs.String("port", "8080", "the port group-reminder is running on")
		databaseDriver       = fs.String("database-driver", "sqlite3", "the database driver, postgres or sqlite3")
		databaseDSN          = fs.String("database-dsn", "group-reminder.db", "the data source name of the database")
		cacheBackend         = fs.String("cache-backend", "redis", "where cached lookups and locales are stored, redis or sql")
		cacheTTL             = fs.Duration("cache-ttl", cache.DefaultTTL, "how long cached lookups are kept")
		cacheSingleFlight    = fs.Bool("cache-single-flight", false, "share one lookup between concurrent cache misses of the same key")
		redisAddress         = fs.String("redis-address", "localhost:6379", "the address of the redis server")
		redisPassword        = fs.String("redis-password", "", "the redis password, only used in prod")
		redisDB              = fs.Int("redis-db", 0, "the redis database")
		reminderInterval     = fs.Duration("reminder-interval", time.Hour, "how often reminders are computed and sent")
		hookToken            = fs.String("hook-token", "changeme", "the secret token for triggering a scheduling pass")
		mastodonClientKey    = fs.String("mastodon-client-key", "", "the mastodon client key")
		mastodonClientSecret = fs.String("mastodon-client-secret", "", "the mastodon client secret")
		mastodonAccessToken  = fs.String("mastodon-access-token", "", "the mastodon access token")
		mastodonServer       = fs.String("mastodon-server", "", "the mastodon instance you are using")
		mastodonVisibility   = fs.String("mastodon-visibility", "direct", "the visibility of reminder toots")
	)

	ff.Parse(fs, os.Args[1:],
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("RB"),
	)

	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	switch strings.ToLower(*environment) {
	case "development":
		l = level.NewFilter(l, level.AllowInfo())
	case "prod":
		l = level.NewFilter(l, level.AllowError())
	}
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	if err := checkIntervals(*cacheTTL, *reminderInterval); err != nil {
		level.Error(l).Log("msg", "invalid configuration", "err", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlx.Open(*databaseDriver, *databaseDSN)
	if err != nil {
		level.Error(l).Log("msg", "error opening database", "err", err)
		return
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		level.Error(l).Log("msg", "error pinging database", "err", err)
		return
	}
	if err := migrations.Up(l, db.DB, *databaseDriver); err != nil {
		level.Error(l).Log("msg", "error migrating database", "err", err)
		return
	}

	var cr cache.Repository
	switch *cacheBackend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cache.NewRedisConfig(*environment, *redisAddress, *redisPassword, *redisDB))
		if err != nil {
			level.Error(l).Log("msg", "error connecting to redis", "err", err)
			return
		}
		defer closeRedis(l, client)
		cr = cache.NewRedisRepository(l, client)
	case "sql":
		sr := cache.NewSQLRepository(l, db)
		go purgeExpired(ctx, l, sr, *cacheTTL)
		cr = sr
	default:
		level.Error(l).Log("err", "unknown cache backend", "cache_backend", *cacheBackend)
		return
	}

	var cacheOpts []cache.Option
	if *cacheSingleFlight {
		cacheOpts = append(cacheOpts, cache.WithSingleFlight())
	}
	groups := group.NewCachedRepository(l, group.NewRepository(l, db), cr, *cacheTTL, cacheOpts...)

	var notifiers notification.Notifiers
	// Setup Mastodon Client
	if *mastodonServer != "" && *mastodonClientKey != "" && *mastodonClientSecret != "" && *mastodonAccessToken != "" {
		cm := mastodon.NewClient(&mastodon.Config{
			Server:       *mastodonServer,
			ClientID:     *mastodonClientKey,
			ClientSecret: *mastodonClientSecret,
			AccessToken:  *mastodonAccessToken,
		})
		account, err := cm.GetAccountCurrentUser(ctx)
		if err != nil {
			level.Error(l).Log("err", "error getting user information from mastodon")
			return
		}
		level.Info(l).Log("msg", "connected to mastodon", "mastodon_user_id", account.ID, "mastodon_user", account.Username)
		notifiers = append(notifiers, notification.NewMastodonRepository(l, cm, *mastodonVisibility))
	}

	// For local development we inject a mock notifier which just logs the reminder. That way we can test the scheduling
	// without setting up real services.
	if *environment == "develop" {
		notifiers = append(notifiers, notification.NewMockRepository(l, "mock1"))
	}

	if len(notifiers) == 0 {
		level.Error(l).Log("err", "no notifiers are configured. make sure to set up mastodon")
		return
	}
	level.Info(l).Log("msg", "configured notifiers", "notifiers", notifiers.String())

	scheduler := reminder.NewScheduler(l, groups)
	runner := reminder.NewRunner(l, scheduler, notifiers.Reminders(), *reminderInterval)
	go runner.Run(ctx)

	// Set up HTTP API
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("group-reminder"))
	})

	triggerService := trigger.NewService(l, runner, groups, cache.NewLocales(cr), *hookToken)
	r.Mount("/api", trigger.NewHandler(triggerService))

	// Set up webserver and set max request size to 1MB
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", *port),
		Handler: &maxBytesHandler{h: r, n: 1024 * 1024},
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			level.Error(l).Log("msg", "error shutting down http server", "err", err)
		}
	}()

	level.Info(l).Log("msg", fmt.Sprintf("group-reminder is running on :%s", *port), "environment", *environment)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		level.Error(l).Log("err", err)
		return
	}
	level.Info(l).Log("msg", "group-reminder stopped")
}

func closeRedis(l log.Logger, client redis.UniversalClient) {
	if err := client.Close(); err != nil {
		level.Error(l).Log("msg", "error closing redis client", "err", err)
	}
}

// checkIntervals rejects durations that can't drive a ticker
func checkIntervals(cacheTTL, reminderInterval time.Duration) error {
	if cacheTTL <= 0 {
		return errors.Errorf("cache-ttl has to be positive, got %s", cacheTTL)
	}
	if reminderInterval <= 0 {
		return errors.Errorf("reminder-interval has to be positive, got %s", reminderInterval)
	}
	return nil
}

type purger interface {
	Purge(ctx context.Context) (int64, error)
}

// purgeExpired removes expired cache rows once per ttl until ctx is done
func purgeExpired(ctx context.Context, l log.Logger, p purger, every time.Duration) {
	if every <= 0 {
		every = cache.DefaultTTL
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := p.Purge(ctx)
			if err != nil {
				level.Error(l).Log("msg", "error purging expired cache entries", "err", err)
				continue
			}
			level.Debug(l).Log("msg", "purged expired cache entries", "count", n)
		}
	}
}
