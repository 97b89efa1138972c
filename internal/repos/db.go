package repos

import (
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// TimeLayout is the canonical timestamp format for all tables. RFC3339 UTC
// strings compare lexicographically in the same order as the instants they
// encode, which the window queries rely on.
const TimeLayout = time.RFC3339

// Now formats the current UTC time for storage.
func Now() string { return time.Now().UTC().Format(TimeLayout) }

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Tracked products (one row per owner+article)
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  article TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','inactive','error')),
  problematic INTEGER NOT NULL DEFAULT 0,
  name TEXT,
  price REAL,
  card_price REAL,
  old_price REAL,
  rating REAL,
  review_count INTEGER,
  available INTEGER NOT NULL DEFAULT 0,
  image_url TEXT,
  fetched_at TEXT,
  rolling_avg REAL,
  rolling_avg_at TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT,
  UNIQUE(owner_id, article)
);
CREATE INDEX IF NOT EXISTS idx_products_status  ON products(status);
CREATE INDEX IF NOT EXISTS idx_products_article ON products(article);

-- Append-only price history
CREATE TABLE IF NOT EXISTS price_snapshots(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  price REAL,
  card_price REAL,
  old_price REAL,
  available INTEGER NOT NULL DEFAULT 0,
  rating REAL,
  review_count INTEGER,
  success INTEGER NOT NULL,
  fetch_ms INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_price_snapshots_product ON price_snapshots(product_id, created_at);

-- Comparison groups & memberships
CREATE TABLE IF NOT EXISTS comparison_groups(
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  name TEXT,
  group_type TEXT NOT NULL DEFAULT 'comparison' CHECK (group_type IN ('comparison','variants','similar')),
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_groups_owner ON comparison_groups(owner_id);

CREATE TABLE IF NOT EXISTS group_members(
  group_id TEXT NOT NULL REFERENCES comparison_groups(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
  role TEXT NOT NULL CHECK (role IN ('own','competitor','item')),
  position INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  PRIMARY KEY (group_id, product_id)
);

-- Immutable comparison snapshots
CREATE TABLE IF NOT EXISTS comparison_snapshots(
  id TEXT PRIMARY KEY,
  group_id TEXT NOT NULL REFERENCES comparison_groups(id) ON DELETE CASCADE,
  payload TEXT NOT NULL,
  metrics TEXT,
  comp_index REAL,
  grade TEXT,
  is_fresh INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comp_snapshots_group ON comparison_snapshots(group_id, created_at);
`
	_, err := db.Exec(schema)
	return err
}
