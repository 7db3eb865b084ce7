package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/probst/tangle/internal/codec"
	"github.com/probst/tangle/internal/key"
	"github.com/probst/tangle/internal/payload"
)

// NotFoundError reports a component or revision the archive does not
// hold. Revision 0 means "any revision of this key".
type NotFoundError struct {
	Key      key.Key
	Revision int64
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Revision > 0 {
		return fmt.Sprintf("component %q revision %d not found", e.Key, e.Revision)
	}
	return fmt.Sprintf("component %q not found", e.Key)
}

// IsNotFound reports whether err is an archive miss.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// Revision describes one archived row without its payload.
type Revision struct {
	Revision int64
	Codec    string
	Digest   string
	SavedSeq int64
}

// LoadComponent returns the latest revision of component k.
func (a *Archive) LoadComponent(ctx context.Context, k key.Key) (payload.Value, int64, error) {
	return a.load(ctx, k, 0)
}

// LoadRevision returns a specific revision of component k.
func (a *Archive) LoadRevision(ctx context.Context, k key.Key, revision int64) (payload.Value, int64, error) {
	if revision <= 0 {
		return nil, 0, fmt.Errorf("load component %q: revision must be positive, got %d", k, revision)
	}
	return a.load(ctx, k, revision)
}

func (a *Archive) load(ctx context.Context, k key.Key, revision int64) (payload.Value, int64, error) {
	query := `
		SELECT revision, codec, payload FROM components
		WHERE key = ?
		ORDER BY revision DESC
		LIMIT 1
	`
	args := []any{string(k)}
	if revision > 0 {
		query = `
			SELECT revision, codec, payload FROM components
			WHERE key = ? AND revision = ?
		`
		args = append(args, revision)
	}

	var rev int64
	var codecName string
	var encoded []byte
	err := a.db.QueryRowContext(ctx, query, args...).Scan(&rev, &codecName, &encoded)
	if err == sql.ErrNoRows {
		return nil, 0, &NotFoundError{Key: k, Revision: revision}
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load component %q: %w", k, err)
	}

	c, ok := codec.Lookup(codecName)
	if !ok {
		return nil, 0, fmt.Errorf("load component %q: unknown codec %q in revision %d", k, codecName, rev)
	}

	v, err := c.Decode(encoded)
	if err != nil {
		return nil, 0, fmt.Errorf("load component %q: decode revision %d (%s): %w", k, rev, codecName, err)
	}
	return v, rev, nil
}

// History returns every revision of component k, oldest first. A key the
// archive never held yields a NotFoundError.
func (a *Archive) History(ctx context.Context, k key.Key) ([]Revision, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT revision, codec, digest, saved_seq FROM components
		WHERE key = ?
		ORDER BY revision ASC
	`, string(k))
	if err != nil {
		return nil, fmt.Errorf("history of %q: %w", k, err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.Revision, &r.Codec, &r.Digest, &r.SavedSeq); err != nil {
			return nil, fmt.Errorf("history of %q: scan: %w", k, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history of %q: %w", k, err)
	}
	if len(out) == 0 {
		return nil, &NotFoundError{Key: k}
	}
	return out, nil
}

// Keys returns every archived component key in deterministic order.
func (a *Archive) Keys(ctx context.Context) ([]key.Key, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT DISTINCT key FROM components ORDER BY key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var out []key.Key
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("list keys: scan: %w", err)
		}
		out = append(out, key.Key(k))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return out, nil
}
