package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/rexcoach/internal/errors"
)

// migrateTo makes the live schema match schemaDefinition declaratively: removed tables are dropped, new tables are
// created, changed tables are rebuilt with the 12-step procedure of https://www.sqlite.org/lang_altertable.html and
// triggers and indexes are synchronised. Columns that exist in both versions of a table keep their data.
//
// Based on https://david.rothlis.net/declarative-schema-migration-for-sqlite/.
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (err error) {
	start := time.Now()

	detach, err := db.attachTarget(ctx, schemaDefinition)
	if err != nil {
		return err
	}
	defer detach()

	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign keys")
	}
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			err = errors.Join(err, errors.Wrap(fkErr, "re-enable foreign keys"))
		}
	}()

	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin migration")
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.logger.LogAttrs(ctx, slog.LevelError, "rollback migration failed", errors.SlogError(rbErr))
		}
	}()

	m := migration{tx: tx, logger: db.logger}
	if err = m.tables(ctx); err != nil {
		return err
	}
	for _, typ := range []string{"trigger", "index"} {
		if err = m.entities(ctx, typ); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx, "PRAGMA foreign_key_check"); err != nil {
		return errors.Wrap(err, "foreign key check")
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit migration")
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database", slog.Duration("duration", time.Since(start)))
	return nil
}

// attachTarget builds the target schema in a scratch in-memory database and attaches it as schemaTarget.
func (db *Database) attachTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	// The scratch database disappears with its last connection, so it stays open until the attachment exists.
	target, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open schema target")
	}
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "close schema target failed", errors.SlogError(closeErr))
		}
	}()
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, errors.Wrap(err, "build schema target")
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", dsn); err != nil {
		return nil, errors.Wrap(err, "attach schema target")
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "detach schema target failed", errors.SlogError(detachErr))
		}
	}, nil
}

type migration struct {
	tx     *sql.Tx
	logger *slog.Logger
}

// Entities named sqlite_* are managed by SQLite itself.
const internalNames = `AND live.name NOT LIKE 'sqlite_%'`

func (m migration) exec(ctx context.Context, msg, query string) error {
	m.logger.LogAttrs(ctx, slog.LevelInfo, msg, slog.String("query", query))
	if _, err := m.tx.ExecContext(ctx, query); err != nil {
		return errors.Wrap(err, msg, slog.String("query", query))
	}
	return nil
}

func (m migration) tables(ctx context.Context) error {
	deleted, err := m.strings(ctx, `SELECT live.name
FROM sqlite_schema AS live
         LEFT JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type = 'table' AND target.type IS NULL `+internalNames)
	if err != nil {
		return errors.Wrap(err, "query deleted tables")
	}
	for _, table := range deleted {
		if err = m.exec(ctx, "dropping table", "DROP TABLE "+table); err != nil {
			return err
		}
	}

	created, err := m.strings(ctx, `SELECT target.sql
FROM schemaTarget.sqlite_schema AS target
         LEFT JOIN sqlite_schema AS live ON live.name = target.name AND live.type = target.type
WHERE target.type = 'table' AND live.type IS NULL AND target.name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return errors.Wrap(err, "query new tables")
	}
	for _, createSQL := range created {
		if err = m.exec(ctx, "creating table", createSQL); err != nil {
			return err
		}
	}

	// A rename quotes the table name in sqlite_schema, so quotes are ignored in the comparison.
	changed, err := m.changed(ctx, `SELECT live.name, target.sql
FROM sqlite_schema AS live
         JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type = 'table' `+internalNames+`
  AND REPLACE(live.sql, '"', '') <> REPLACE(target.sql, '"', '')`)
	if err != nil {
		return errors.Wrap(err, "query changed tables")
	}
	for _, table := range changed {
		if err = m.rebuild(ctx, table); err != nil {
			return errors.Wrap(err, "rebuild table", slog.String("table", table.name))
		}
	}
	return nil
}

// rebuild recreates a changed table under a temporary name, copies the common columns and swaps it in place.
func (m migration) rebuild(ctx context.Context, table changedEntity) error {
	tempName := table.name + "_migration_temp"
	if err := m.exec(ctx, "creating table with temporary name",
		strings.Replace(table.sql, table.name, tempName, 1)); err != nil {
		return err
	}
	// Quoted so that columns named after keywords work.
	common, err := m.strings(ctx, `SELECT '"' || target.name || '"'
FROM PRAGMA_TABLE_INFO(:table) AS live
         JOIN PRAGMA_TABLE_INFO(:table, 'schemaTarget') AS target ON target.name = live.name`,
		sql.Named("table", table.name))
	if err != nil {
		return errors.Wrap(err, "query common columns")
	}
	if len(common) > 0 {
		columns := strings.Join(common, ", ")
		if err = m.exec(ctx, "copying data",
			fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", tempName, columns, columns, table.name)); err != nil {
			return err
		}
	}
	if err = m.exec(ctx, "dropping old table", "DROP TABLE "+table.name); err != nil {
		return err
	}
	return m.exec(ctx, "renaming table", fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tempName, table.name))
}

// entities synchronises the triggers or indexes given by typ. Changed ones are dropped and recreated.
func (m migration) entities(ctx context.Context, typ string) error {
	deleted, err := m.strings(ctx, `SELECT live.name
FROM sqlite_schema AS live
         LEFT JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type = ? AND target.type IS NULL AND live.sql IS NOT NULL `+internalNames, typ)
	if err != nil {
		return errors.Wrap(err, "query deleted", slog.String("type", typ))
	}
	changed, err := m.changed(ctx, `SELECT live.name, target.sql
FROM sqlite_schema AS live
         JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type = ? AND live.sql <> target.sql `+internalNames, typ)
	if err != nil {
		return errors.Wrap(err, "query changed", slog.String("type", typ))
	}
	created, err := m.strings(ctx, `SELECT target.sql
FROM schemaTarget.sqlite_schema AS target
         LEFT JOIN sqlite_schema AS live ON live.name = target.name AND live.type = target.type
WHERE target.type = ? AND live.type IS NULL AND target.sql IS NOT NULL AND target.name NOT LIKE 'sqlite_%'`, typ)
	if err != nil {
		return errors.Wrap(err, "query created", slog.String("type", typ))
	}

	for _, c := range changed {
		deleted = append(deleted, c.name)
		created = append(created, c.sql)
	}
	for _, name := range deleted {
		if err = m.exec(ctx, "dropping "+typ, fmt.Sprintf("DROP %s %s", strings.ToUpper(typ), name)); err != nil {
			return err
		}
	}
	for _, createSQL := range created {
		if err = m.exec(ctx, "creating "+typ, createSQL); err != nil {
			return err
		}
	}
	return nil
}

func (m migration) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := m.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer rows.Close()
	var results []string
	for rows.Next() {
		var s string
		if err = rows.Scan(&s); err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		results = append(results, s)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	return results, nil
}

type changedEntity struct {
	name string
	sql  string
}

func (m migration) changed(ctx context.Context, query string, args ...any) ([]changedEntity, error) {
	rows, err := m.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer rows.Close()
	var results []changedEntity
	for rows.Next() {
		var c changedEntity
		if err = rows.Scan(&c.name, &c.sql); err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		results = append(results, c)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	return results, nil
}
