package klinecache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"chartlink/internal/logger"
	"chartlink/internal/market"

	_ "modernc.org/sqlite"
)

// Cache 把各面板的数据集落到本地 SQLite，重启后不必重新拉取全量历史。
type Cache struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open 打开（必要时创建）K线缓存。
func Open(path string) (*Cache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("kline cache: 路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	c := &Cache{db: db, path: path}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Infof("kline cache ready at %s", path)
	return c, nil
}

func (c *Cache) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS klines (
    symbol     TEXT NOT NULL,
    interval   TEXT NOT NULL,
    open_time  INTEGER NOT NULL,
    close_time INTEGER NOT NULL,
    open       REAL NOT NULL,
    high       REAL NOT NULL,
    low        REAL NOT NULL,
    close      REAL NOT NULL,
    volume     REAL NOT NULL,
    trades     INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (symbol, interval, open_time)
);`
	_, err := c.db.ExecContext(context.Background(), schema)
	return err
}

// Save 整体替换一个数据集（先删后插，单事务）。
func (c *Cache) Save(ctx context.Context, symbol, interval string, ks []market.Candle) error {
	if c == nil || c.db == nil {
		return nil
	}
	symbol = strings.TrimSpace(symbol)
	interval = strings.TrimSpace(interval)
	if symbol == "" || interval == "" {
		return fmt.Errorf("kline cache: symbol/interval 不能为空")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM klines WHERE symbol = ? AND interval = ?", symbol, interval); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO klines (symbol, interval, open_time, close_time, open, high, low, close, volume, trades)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, k := range ks {
		if _, err := stmt.ExecContext(ctx, symbol, interval,
			k.OpenTime, k.CloseTime, k.Open, k.High, k.Low, k.Close, k.Volume, k.Trades); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load 读取最近 limit 根K线（升序）。limit<=0 表示全部。
func (c *Cache) Load(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if c == nil || c.db == nil {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	query := `
SELECT open_time, close_time, open, high, low, close, volume, trades
FROM klines WHERE symbol = ? AND interval = ?
ORDER BY open_time DESC`
	args := []any{strings.TrimSpace(symbol), strings.TrimSpace(interval)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Candle
	for rows.Next() {
		var k market.Candle
		if err := rows.Scan(&k.OpenTime, &k.CloseTime, &k.Open, &k.High, &k.Low, &k.Close, &k.Volume, &k.Trades); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// 查询按 open_time 倒序取最近 limit 根，翻回升序再交付
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}
