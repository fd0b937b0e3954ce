package models

// Archive status values as reported by the recording provider.
const (
	ArchiveStatusStarted   = "started"
	ArchiveStatusStopped   = "stopped"
	ArchiveStatusAvailable = "available"
	ArchiveStatusFailed    = "failed"
)

// Archive is the provider-side recording job. The local system only
// observes state via polling; transitions are entirely provider-driven.
type Archive struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
}

// Available reports whether the archive reached its terminal downloadable
// state: status "available" and a remote URL present.
func (a *Archive) Available() bool {
	return a.Status == ArchiveStatusAvailable && a.URL != ""
}
