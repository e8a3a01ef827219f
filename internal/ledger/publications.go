package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

const publicationColumns = "id, run_id, cycle, clip_path, clip_name, clip_size, clip_mtime, status, platform_id, error_message, created_at"

// RecordPublication appends one upload outcome.
func (s *Store) RecordPublication(ctx context.Context, pub Publication) error {
	if pub.ClipPath == "" {
		return errors.New("record publication: clip path required")
	}
	if pub.ClipName == "" {
		pub.ClipName = filepath.Base(pub.ClipPath)
	}
	created := pub.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO publications (
            run_id, cycle, clip_path, clip_name, clip_size, clip_mtime, status, platform_id, error_message, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pub.RunID,
		pub.Cycle,
		pub.ClipPath,
		pub.ClipName,
		pub.ClipSize,
		modTimeValue(pub.ClipModTime),
		string(pub.Status),
		nullableString(pub.PlatformID),
		nullableString(pub.ErrorMessage),
		formatTime(created),
	)
	if err != nil {
		return fmt.Errorf("insert publication: %w", err)
	}
	return nil
}

// PublishedID returns the platform id of an earlier successful upload of the
// same clip file. Path, size and modification time must all match, so a clip
// re-rendered at a previously published path is not reported.
func (s *Store) PublishedID(ctx context.Context, clip ClipFile) (string, bool, error) {
	if clip.ModTime.IsZero() {
		return "", false, nil
	}
	var platformID sql.NullString
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT platform_id FROM publications
         WHERE clip_path = ? AND clip_size = ? AND clip_mtime = ? AND status = ?
         ORDER BY id DESC LIMIT 1`,
		clip.Path, clip.Size, modTimeValue(clip.ModTime), string(StatusPublished),
	).Scan(&platformID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup publication: %w", err)
	}
	return platformID.String, true, nil
}

// ListPublications returns the outcomes recorded for a run in insertion order.
func (s *Store) ListPublications(ctx context.Context, runID string) ([]Publication, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+publicationColumns+" FROM publications WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	defer rows.Close()

	var pubs []Publication
	for rows.Next() {
		var (
			pub        Publication
			status     string
			platformID sql.NullString
			errorMsg   sql.NullString
			createdRaw string
			modTime    int64
		)
		if err := rows.Scan(&pub.ID, &pub.RunID, &pub.Cycle, &pub.ClipPath, &pub.ClipName,
			&pub.ClipSize, &modTime, &status, &platformID, &errorMsg, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}
		pub.Status = Status(status)
		pub.PlatformID = platformID.String
		pub.ErrorMessage = errorMsg.String
		if modTime != 0 {
			pub.ClipModTime = time.Unix(0, modTime)
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			pub.CreatedAt = created
		}
		pubs = append(pubs, pub)
	}
	return pubs, rows.Err()
}

// PublishedCount returns how many clips a run published.
func (s *Store) PublishedCount(ctx context.Context, runID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT COUNT(1) FROM publications WHERE run_id = ? AND status = ?",
		runID, string(StatusPublished),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count publications: %w", err)
	}
	return count, nil
}
