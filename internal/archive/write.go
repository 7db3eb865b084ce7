package archive

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/probst/tangle/internal/codec"
	"github.com/probst/tangle/internal/key"
	"github.com/probst/tangle/internal/payload"
)

// SaveComponent appends the next revision of component k, encoded with c.
// Returns the revision holding v and whether a new row was written.
//
// Idempotency is content-addressed: if the latest revision's digest
// equals v's canonical digest, no row is written and the existing
// revision is returned with inserted=false. Saving therefore commutes
// with itself, and replaying a save-heavy cascade cannot bloat the
// archive.
//
// seq records the scheduler's logical time of the save for provenance;
// pass 0 when no logical clock is in play.
func (a *Archive) SaveComponent(ctx context.Context, k key.Key, v payload.Value, c codec.Codec, seq int64) (revision int64, inserted bool, err error) {
	if err := k.Validate(); err != nil {
		return 0, false, fmt.Errorf("save component: %w", err)
	}

	digest, err := payload.ComponentDigest(v)
	if err != nil {
		return 0, false, fmt.Errorf("save component %q: %w", k, err)
	}

	encoded, err := c.Encode(v)
	if err != nil {
		return 0, false, fmt.Errorf("save component %q: encode (%s): %w", k, c.Name(), err)
	}

	// Transaction makes latest-lookup plus append atomic under the
	// single-writer connection.
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("save component %q: begin tx: %w", k, err)
	}
	defer tx.Rollback() // No-op if committed

	var latestRev int64
	var latestDigest string
	row := tx.QueryRowContext(ctx, `
		SELECT revision, digest FROM components
		WHERE key = ?
		ORDER BY revision DESC
		LIMIT 1
	`, string(k))
	switch err := row.Scan(&latestRev, &latestDigest); err {
	case nil:
		if latestDigest == digest {
			return latestRev, false, nil
		}
	case sql.ErrNoRows:
		latestRev = 0
	default:
		return 0, false, fmt.Errorf("save component %q: query latest: %w", k, err)
	}

	revision = latestRev + 1
	_, err = tx.ExecContext(ctx, `
		INSERT INTO components (key, revision, codec, payload, digest, saved_seq)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(k), revision, c.Name(), encoded, digest, seq)
	if err != nil {
		return 0, false, fmt.Errorf("save component %q: insert: %w", k, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("save component %q: commit: %w", k, err)
	}
	return revision, true, nil
}
