package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite3/*.sql
var migrations embed.FS

// Up applies all pending migrations for the given driver, either "postgres" or "sqlite3"
func Up(l log.Logger, db *sql.DB, driver string) error {
	switch driver {
	case "postgres", "sqlite3":
	default:
		return errors.Errorf("no migrations for driver %q", driver)
	}
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{l: l})
	if err := goose.SetDialect(driver); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.Up(db, driver); err != nil {
		return errors.Wrap(err, "applying migrations")
	}
	return nil
}

// gooseLogger forwards migration output to our logger
type gooseLogger struct {
	l log.Logger
}

func (g gooseLogger) Fatal(v ...interface{}) {
	level.Error(g.l).Log("msg", fmt.Sprint(v...))
	os.Exit(1)
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	level.Error(g.l).Log("msg", fmt.Sprintf(format, v...))
	os.Exit(1)
}

func (g gooseLogger) Print(v ...interface{}) {
	level.Debug(g.l).Log("msg", fmt.Sprint(v...))
}

func (g gooseLogger) Println(v ...interface{}) {
	level.Debug(g.l).Log("msg", fmt.Sprint(v...))
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	level.Debug(g.l).Log("msg", fmt.Sprintf(format, v...))
}
