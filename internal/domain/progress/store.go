package progress

import "context"

// StorageKeyPrefix namespaces persisted progress documents.
const StorageKeyPrefix = "learnhub_user_progress"

// StorageKey returns the key under which a learner's record is stored.
func StorageKey(learnerID string) string {
	return StorageKeyPrefix + ":" + learnerID
}

// Store persists whole progress records. Save overwrites wholesale; there are
// no partial updates.
type Store interface {
	// Load returns the record or shared.ErrProgressNotFound.
	Load(ctx context.Context, learnerID string) (*UserProgress, error)

	// Save stores the record, replacing any previous one.
	Save(ctx context.Context, learnerID string, p *UserProgress) error

	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, learnerID string) error
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}
