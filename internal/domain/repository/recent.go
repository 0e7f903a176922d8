package repository

// RecentFiles defines the bounded most-recently-processed list.
type RecentFiles interface {
	// Load returns the list with entries for missing files dropped.
	Load() []string

	// Add moves path to the front of the list and persists it.
	Add(path string) ([]string, error)
}
