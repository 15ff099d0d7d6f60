package sourcestore

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/dreamerjackson/bookcrawler/sqldb"
	"go.uber.org/zap"
)

// Config selects and configures a store for Open.
type Config struct {
	Type      string   `json:"type"`
	SQLURL    string   `json:"sqlURL"`
	Path      string   `json:"path"`
	Endpoints []string `json:"endpoints"`
}

// Open creates the store named by cfg.Type.
func Open(ctx context.Context, cfg Config, node *snowflake.Node, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Type {
	case MemoryType:
		return NewMemoryStore(node), nil
	case "", SQLiteType, MySQLType:
		driver, dsn := sqldb.SQLite, cfg.SQLURL
		if cfg.Type == MySQLType {
			driver = sqldb.MySQL
		} else if dsn == "" {
			dsn = cfg.Path
			if dsn == "" {
				dsn = "bookcrawler.db"
			}
		}
		db, err := sqldb.New(sqldb.WithDriver(driver), sqldb.WithConnURL(dsn), sqldb.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		s, err := NewSQLStore(ctx, db, node, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	case EtcdType:
		return NewEtcdStore(cfg.Endpoints, node, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
