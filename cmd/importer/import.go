package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/dewey/group-reminder/cache"
	"github.com/dewey/group-reminder/migrations"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/peterbourgon/ff/v3"
)

// Imports user locales from a file with one "user_id:locale" line per user into the locale store
func main() {
	fs := flag.NewFlagSet("importer", flag.ExitOnError)
	var (
		environment     = fs.String("environment", "develop", "the environment we are running in")
		localesFilePath = fs.String("locales-file-path", "locales_migrate", "the file to import locales from")
		cacheBackend    = fs.String("cache-backend", "redis", "where locales are stored, redis or sql")
		databaseDriver  = fs.String("database-driver", "sqlite3", "the database driver, postgres or sqlite3")
		databaseDSN     = fs.String("database-dsn", "group-reminder.db", "the data source name of the database")
		redisAddress    = fs.String("redis-address", "localhost:6379", "the address of the redis server")
		redisPassword   = fs.String("redis-password", "", "the redis password, only used in prod")
		redisDB         = fs.Int("redis-db", 0, "the redis database")
	)
	ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("RB"))

	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	l = level.NewFilter(l, level.AllowInfo())
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	ctx := context.Background()
	var cr cache.Repository
	switch *cacheBackend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cache.NewRedisConfig(*environment, *redisAddress, *redisPassword, *redisDB))
		if err != nil {
			level.Error(l).Log("msg", "error connecting to redis", "err", err)
			return
		}
		defer client.Close()
		cr = cache.NewRedisRepository(l, client)
	case "sql":
		db, err := sqlx.Open(*databaseDriver, *databaseDSN)
		if err != nil {
			level.Error(l).Log("msg", "error opening database", "err", err)
			return
		}
		defer db.Close()
		if err := migrations.Up(l, db.DB, *databaseDriver); err != nil {
			level.Error(l).Log("msg", "error migrating database", "err", err)
			return
		}
		cr = cache.NewSQLRepository(l, db)
	default:
		level.Error(l).Log("err", "unknown cache backend", "cache_backend", *cacheBackend)
		return
	}
	locales := cache.NewLocales(cr)

	f, err := os.Open(*localesFilePath)
	if err != nil {
		level.Error(l).Log("err", err)
		return
	}
	defer f.Close()

	var imported int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if scanner.Text() == "" {
			continue
		}
		userID, locale, ok := parseLine(scanner.Text())
		if !ok {
			level.Error(l).Log("msg", "skipping malformed line", "line", scanner.Text())
			continue
		}
		if err := locales.Set(ctx, userID, locale); err != nil {
			level.Error(l).Log("msg", "error storing locale", "user_id", userID, "err", err)
			continue
		}
		imported++
	}
	if err := scanner.Err(); err != nil {
		level.Error(l).Log("err", err)
	}
	level.Info(l).Log("msg", "import done", "imported", imported)
}

// parseLine parses a "user_id:locale" line
func parseLine(line string) (int64, string, bool) {
	id, locale, found := strings.Cut(strings.TrimSpace(line), ":")
	if !found || locale == "" {
		return 0, "", false
	}
	userID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return userID, locale, true
}
