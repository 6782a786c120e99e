package models

// DownloadStatus enumerates download task states.
type DownloadStatus string

const (
	DownloadPending     DownloadStatus = "Pending"
	DownloadDownloading DownloadStatus = "Downloading"
	DownloadDownloaded  DownloadStatus = "Downloaded"
	DownloadInstalling  DownloadStatus = "Installing"
	DownloadInstalled   DownloadStatus = "Installed"
	DownloadFailed      DownloadStatus = "Failed"
	DownloadCancelled   DownloadStatus = "Cancelled"
)

// Terminal reports whether no further transition is expected. A rearmed
// task deliberately leaves a terminal state (MongoDB + mongosh).
func (s DownloadStatus) Terminal() bool {
	switch s {
	case DownloadInstalled, DownloadFailed, DownloadCancelled:
		return true
	}
	return false
}

/**
 * DownloadTask is the in-memory record of one streaming download
 * @property {string} id - Task id, shared scheme "{type}-{version}"
 * @property {[]string} urls - Ordered mirror list, tried front to back
 * @property {int} current_url_index - Index of the URL currently or last tried
 * @property {float64} progress - 0..100, -1 when total size is unknown
 * @description
 * - Tasks live only in memory; reusing a task id overwrites prior state
 * - failed_urls accumulates every URL that errored during fallback
 */
type DownloadTask struct {
	ID              string         `json:"id"`
	URLs            []string       `json:"urls"`
	CurrentURLIndex int            `json:"current_url_index"`
	URL             string         `json:"url"`
	TargetPath      string         `json:"target_path"`
	Filename        string         `json:"filename"`
	TotalSize       int64          `json:"total_size"`
	DownloadedSize  int64          `json:"downloaded_size"`
	Status          DownloadStatus `json:"status"`
	Progress        float64        `json:"progress"`
	Error           string         `json:"error,omitempty"`
	FailedURLs      []string       `json:"failed_urls,omitempty"`
}
