package sourcestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/dreamerjackson/bookcrawler/source"
	"github.com/dreamerjackson/bookcrawler/sqldb"
	"go.uber.org/zap"
)

const tableName = "book_sources"

var sourceTable = sqldb.TableData{
	TableName: tableName,
	ColumnNames: []sqldb.Field{
		{Title: "id", Type: "BIGINT"},
		{Title: "name", Type: "VARCHAR(255)"},
		{Title: "url", Type: "VARCHAR(512)"},
		{Title: "enabled", Type: "BOOLEAN"},
		{Title: "weight", Type: "INT"},
		{Title: "data", Type: "MEDIUMTEXT"},
	},
	PrimaryKey: "id",
	Unique:     []string{"url"},
}

// SQLStore keeps rule sets in one table, the full rule set as a JSON column
// next to the columns used for ordering and filtering.
type SQLStore struct {
	db     *sqldb.Sqldb
	node   *snowflake.Node
	logger *zap.Logger
}

func NewSQLStore(ctx context.Context, db *sqldb.Sqldb, node *snowflake.Node, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.CreateTable(ctx, sourceTable); err != nil {
		return nil, fmt.Errorf("create %s: %w", tableName, err)
	}

	return &SQLStore{db: db, node: node, logger: logger}, nil
}

func (s *SQLStore) query(ctx context.Context, where string, args ...interface{}) ([]*source.RuleSet, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT id, enabled, weight, data FROM `+tableName+where+` ORDER BY weight DESC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := make([]*source.RuleSet, 0)
	for rows.Next() {
		var (
			id      int64
			enabled bool
			weight  int
			data    string
		)
		if err := rows.Scan(&id, &enabled, &weight, &data); err != nil {
			return nil, err
		}
		rs := source.New()
		if err := json.Unmarshal([]byte(data), rs); err != nil {
			s.logger.Error("decode stored rule set failed", zap.Int64("id", id), zap.Error(err))
			continue
		}
		rs.ID, rs.Enabled, rs.Weight = id, enabled, weight
		sets = append(sets, rs)
	}

	return sets, rows.Err()
}

func (s *SQLStore) List(ctx context.Context) ([]*source.RuleSet, error) {
	return s.query(ctx, "")
}

func (s *SQLStore) Enabled(ctx context.Context) ([]*source.RuleSet, error) {
	return s.query(ctx, ` WHERE enabled = ?`, true)
}

func (s *SQLStore) Get(ctx context.Context, id int64) (*source.RuleSet, error) {
	sets, err := s.query(ctx, ` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, ErrNotFound
	}

	return sets[0], nil
}

func (s *SQLStore) idByURL(ctx context.Context, u string) (int64, error) {
	var id int64
	err := s.db.DB().QueryRowContext(ctx, `SELECT id FROM `+tableName+` WHERE url = ?`, urlKey(u)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}

	return id, err
}

func (s *SQLStore) Add(ctx context.Context, rs *source.RuleSet) (int64, error) {
	if err := validate(rs); err != nil {
		return 0, err
	}
	existing, err := s.idByURL(ctx, rs.URL)
	if err != nil {
		return 0, err
	}
	if existing != 0 {
		return existing, ErrDuplicate
	}

	c := rs.Clone()
	c.ID = s.node.Generate().Int64()
	data, err := json.Marshal(c)
	if err != nil {
		return 0, err
	}

	row := sourceTable
	row.Args = []interface{}{c.ID, c.Name, urlKey(c.URL), c.Enabled, c.Weight, string(data)}
	row.DataCount = 1
	if err := s.db.Insert(ctx, row); err != nil {
		return 0, err
	}
	s.logger.Debug("rule set added", zap.Int64("id", c.ID), zap.String("name", c.Name))

	return c.ID, nil
}

func (s *SQLStore) Update(ctx context.Context, rs *source.RuleSet) error {
	if err := validate(rs); err != nil {
		return err
	}
	if _, err := s.Get(ctx, rs.ID); err != nil {
		return err
	}
	existing, err := s.idByURL(ctx, rs.URL)
	if err != nil {
		return err
	}
	if existing != 0 && existing != rs.ID {
		return ErrDuplicate
	}

	data, err := json.Marshal(rs)
	if err != nil {
		return err
	}
	_, err = s.db.DB().ExecContext(ctx,
		`UPDATE `+tableName+` SET name = ?, url = ?, enabled = ?, weight = ?, data = ? WHERE id = ?`,
		rs.Name, urlKey(rs.URL), rs.Enabled, rs.Weight, string(data), rs.ID)

	return err
}

func (s *SQLStore) exec(ctx context.Context, stmt string, args ...interface{}) error {
	res, err := s.db.DB().ExecContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLStore) Remove(ctx context.Context, id int64) error {
	return s.exec(ctx, `DELETE FROM `+tableName+` WHERE id = ?`, id)
}

func (s *SQLStore) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	_, err := s.db.DB().ExecContext(ctx, `UPDATE `+tableName+` SET enabled = ? WHERE id = ?`, enabled, id)

	return err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
