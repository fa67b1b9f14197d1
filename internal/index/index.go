package index

// DesignIndex defines the interface for design metadata operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type DesignIndex interface {
	UpsertDesign(row DesignRow) error
	DeleteDesign(id string) error
	GetDesign(id string) (*DesignRow, error)
	ListDesigns(limit, offset int, templateID string) ([]DesignRow, int, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies DesignIndex at compile time.
var _ DesignIndex = (*DB)(nil)
