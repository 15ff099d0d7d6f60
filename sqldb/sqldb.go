package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type DBer interface {
	CreateTable(ctx context.Context, t TableData) error
	Insert(ctx context.Context, t TableData) error
}

type Sqldb struct {
	options
	db *sql.DB
}

type Field struct {
	Title string
	Type  string
}

type TableData struct {
	TableName   string
	ColumnNames []Field
	// PrimaryKey names the primary key column, if any.
	PrimaryKey string
	// Unique lists columns that get a unique index.
	Unique    []string
	Args      []interface{}
	DataCount int
}

func New(opts ...Option) (*Sqldb, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	d := &Sqldb{}
	d.options = options

	if err := d.OpenDB(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Sqldb) OpenDB() error {
	if d.driver != MySQL && d.driver != SQLite {
		return fmt.Errorf("unsupported sql driver %q", d.driver)
	}

	db, err := sql.Open(d.driver, d.sqlURL)
	if err != nil {
		return err
	}

	if d.driver == SQLite {
		// one connection keeps in-memory databases alive and serialises writers
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(64)
		db.SetMaxIdleConns(16)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.db = db

	return nil
}

func (d *Sqldb) DB() *sql.DB {
	return d.db
}

func (d *Sqldb) Driver() string {
	return d.driver
}

func (d *Sqldb) Close() error {
	return d.db.Close()
}

func (d *Sqldb) CreateTable(ctx context.Context, t TableData) error {
	if len(t.ColumnNames) == 0 {
		return errors.New("column can not be empty")
	}

	cols := make([]string, 0, len(t.ColumnNames)+1)
	for _, c := range t.ColumnNames {
		col := c.Title + ` ` + c.Type
		if c.Title == t.PrimaryKey {
			col += ` NOT NULL PRIMARY KEY`
		}
		cols = append(cols, col)
	}
	for _, u := range t.Unique {
		cols = append(cols, `UNIQUE (`+u+`)`)
	}

	stmt := `CREATE TABLE IF NOT EXISTS ` + t.TableName + ` (` + strings.Join(cols, `, `) + `)`
	if d.driver == MySQL {
		stmt += ` ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	}

	d.logger.Debug("create table", zap.String("sql", stmt))

	_, err := d.db.ExecContext(ctx, stmt)

	return err
}

func (d *Sqldb) DropTable(ctx context.Context, t TableData) error {
	stmt := `DROP TABLE IF EXISTS ` + t.TableName

	d.logger.Debug("drop table", zap.String("sql", stmt))

	_, err := d.db.ExecContext(ctx, stmt)

	return err
}

// Insert writes DataCount rows whose values are laid out row by row in Args.
func (d *Sqldb) Insert(ctx context.Context, t TableData) error {
	if len(t.ColumnNames) == 0 {
		return errors.New("empty column")
	}
	if t.DataCount <= 0 || len(t.Args) != t.DataCount*len(t.ColumnNames) {
		return fmt.Errorf("insert %s: %d args for %d rows of %d columns",
			t.TableName, len(t.Args), t.DataCount, len(t.ColumnNames))
	}

	titles := make([]string, 0, len(t.ColumnNames))
	for _, v := range t.ColumnNames {
		titles = append(titles, v.Title)
	}

	row := "(" + strings.Repeat(",?", len(t.ColumnNames))[1:] + ")"
	stmt := `INSERT INTO ` + t.TableName + `(` + strings.Join(titles, ",") + `) VALUES ` +
		strings.Repeat(","+row, t.DataCount)[1:]
	d.logger.Debug("insert table", zap.String("sql", stmt))

	_, err := d.db.ExecContext(ctx, stmt, t.Args...)

	return err
}
