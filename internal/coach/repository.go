package coach

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"

	"github.com/myrjola/rexcoach/internal/errors"
	"github.com/myrjola/rexcoach/internal/profile"
	"github.com/myrjola/rexcoach/internal/sqlite"
)

// profileRepository is the profile blob store. A profile is read when the athlete context is created and
// overwritten wholesale on every update.
type profileRepository struct {
	db *sqlite.Database
}

func newProfileRepository(db *sqlite.Database) *profileRepository {
	return &profileRepository{db: db}
}

// get returns the stored profile, or nil when the user has not completed onboarding.
func (r *profileRepository) get(ctx context.Context, userID int) (*profile.Profile, error) {
	var blob []byte
	err := r.db.ReadOnly.QueryRowContext(ctx,
		`SELECT profile FROM athlete_profiles WHERE user_id = ?`, userID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // no profile yet.
	}
	if err != nil {
		return nil, errors.Wrap(err, "query profile", slog.Int("user_id", userID))
	}
	p, err := profile.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, errors.Wrap(err, "decode stored profile", slog.Int("user_id", userID))
	}
	return &p, nil
}

func (r *profileRepository) put(ctx context.Context, userID int, p profile.Profile) error {
	blob, err := p.Marshal()
	if err != nil {
		return err //nolint:wrapcheck // already annotated.
	}
	if _, err = r.db.ReadWrite.ExecContext(ctx, `
		INSERT INTO athlete_profiles (user_id, profile) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			profile = excluded.profile,
			updated = strftime('%Y-%m-%dT%H:%M:%fZ')`, userID, blob); err != nil {
		return errors.Wrap(err, "save profile", slog.Int("user_id", userID))
	}
	return nil
}
