package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/kjstillabower/surfsup-climate-api/internal/models"
)

// DateLayout is the ISO date format the dataset stores and the API serves.
const DateLayout = "2006-01-02"

// cutoffDays is the look-back used by the "last year of data" routes.
const cutoffDays = 365

type boundsSource interface {
	DateBounds(ctx context.Context) (oldest, mostRecent string, err error)
}

// LoadBounds computes the dataset-wide dates once at startup. It fails with ErrNoData
// on an empty dataset; callers must not serve traffic without bounds.
func LoadBounds(ctx context.Context, src boundsSource) (models.DateBounds, error) {
	oldest, mostRecent, err := src.DateBounds(ctx)
	if err != nil {
		return models.DateBounds{}, err
	}
	if _, err := time.Parse(DateLayout, oldest); err != nil {
		return models.DateBounds{}, fmt.Errorf("oldest date %q: %w", oldest, err)
	}
	latest, err := time.Parse(DateLayout, mostRecent)
	if err != nil {
		return models.DateBounds{}, fmt.Errorf("most recent date %q: %w", mostRecent, err)
	}
	return models.DateBounds{
		Oldest:        oldest,
		MostRecent:    mostRecent,
		OneYearCutoff: latest.AddDate(0, 0, -cutoffDays).Format(DateLayout),
	}, nil
}
