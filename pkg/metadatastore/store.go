package metadatastore

import "github.com/mimir-aip/winequality/pkg/models"

// Store is the registry of training runs.
// It records what was trained, from which source and with what outcome; the model
// artifacts themselves stay on disk.
type Store interface {
	SaveRun(run *models.TrainingRun) error
	GetRun(id string) (*models.TrainingRun, error)
	// ListRuns returns runs newest first. A non-positive limit returns every run.
	ListRuns(limit int) ([]*models.TrainingRun, error)
	// LatestRun returns the newest successful run
	LatestRun() (*models.TrainingRun, error)
	Close() error
}
