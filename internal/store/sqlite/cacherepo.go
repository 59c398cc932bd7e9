package sqlite

import (
	"context"
	"database/sql"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/revline/internal/cache"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	_ cache.Tier    = (*CacheRepo)(nil)
	_ cache.Sweeper = (*CacheRepo)(nil)
)

// CacheRepo is the durable tier of the review cache.
type CacheRepo struct {
	db *DB
}

func NewCacheRepo(db *DB) *CacheRepo {
	return &CacheRepo{db: db}
}

func (r *CacheRepo) Get(ctx context.Context, key cache.Key) (cache.Entry, bool, error) {
	const query = `
		SELECT result, cached_at
		FROM review_cache
		WHERE project_id = ? AND filename = ? AND file_hash = ?
	`

	var (
		raw      string
		cachedAt int64
	)
	err := r.db.Reader.QueryRowContext(ctx, query, key.ProjectID, key.Filename, key.FileHash).Scan(&raw, &cachedAt)
	if errm.Is(err, sql.ErrNoRows) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, errm.Wrap(err, "query cache entry", "file", key.Filename)
	}

	entry := cache.Entry{Key: key, CachedAt: fromMillis(cachedAt)}
	if err := json.UnmarshalFromString(raw, &entry.Result); err != nil {
		return cache.Entry{}, false, errm.Wrap(err, "decode cached result", "file", key.Filename)
	}

	return entry, true, nil
}

func (r *CacheRepo) Put(ctx context.Context, entry cache.Entry) error {
	const query = `
		INSERT INTO review_cache (project_id, filename, file_hash, result, cached_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, filename, file_hash) DO UPDATE SET
			result = excluded.result,
			cached_at = excluded.cached_at
	`

	raw, err := json.MarshalToString(entry.Result)
	if err != nil {
		return errm.Wrap(err, "encode result", "file", entry.Key.Filename)
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		entry.Key.ProjectID, entry.Key.Filename, entry.Key.FileHash, raw, toMillis(entry.CachedAt),
	)
	if err != nil {
		return errm.Wrap(err, "upsert cache entry", "file", entry.Key.Filename)
	}

	return nil
}

func (r *CacheRepo) Delete(ctx context.Context, key cache.Key) error {
	const query = `DELETE FROM review_cache WHERE project_id = ? AND filename = ? AND file_hash = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, key.ProjectID, key.Filename, key.FileHash); err != nil {
		return errm.Wrap(err, "delete cache entry", "file", key.Filename)
	}
	return nil
}

func (r *CacheRepo) DeleteFile(ctx context.Context, projectID, filename string) error {
	const query = `DELETE FROM review_cache WHERE project_id = ? AND filename = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, projectID, filename); err != nil {
		return errm.Wrap(err, "delete cache entries", "file", filename)
	}
	return nil
}

// DeleteOlderThan removes entries cached before the given time.
func (r *CacheRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM review_cache WHERE cached_at < ?`

	res, err := r.db.Writer.ExecContext(ctx, query, toMillis(before))
	if err != nil {
		return 0, errm.Wrap(err, "delete expired cache entries")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errm.Wrap(err, "rows affected")
	}
	return n, nil
}
