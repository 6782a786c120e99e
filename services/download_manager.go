package services

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"envis/internal/logger"
	"envis/internal/models"
	"envis/internal/utils"
)

const downloadChunkSize = 32 * 1024

// InstallCallback runs after a successful download of a task. It is
// expected to drive the status through Installing to Installed (or
// Failed); the manager is agnostic to what installation means.
type InstallCallback func(task *models.DownloadTask) error

type downloadEntry struct {
	task      models.DownloadTask
	onSuccess InstallCallback
	// arming increments on every Rearm so a finished phase can tell
	// whether its callback chained another one
	arming int
}

/**
 * DownloadManager is the process-wide registry of streaming downloads
 * @description
 * - Tasks live only in memory; reusing a task id overwrites prior state,
 *   which multi-phase installers rely on (MongoDB + mongosh rearm)
 * - Progress is refreshed after each chunk under the registry lock
 */
type DownloadManager struct {
	mu     sync.Mutex
	tasks  map[string]*downloadEntry
	client *http.Client
}

func NewDownloadManager() *DownloadManager {
	return &DownloadManager{
		tasks: make(map[string]*downloadEntry),
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

/**
 * Run a download to completion, trying each URL in order
 * @param {string} id - Task id, "{type}-{version}" by convention
 * @param {[]string} urls - Ordered mirror list
 * @param {string} dir - Target directory, created when missing
 * @param {string} filename - Target file name inside dir
 * @param {bool} overwrite - Replace an existing target file
 * @param {InstallCallback} onSuccess - Optional post-download install hook
 * @returns {error} Returns nil when the task reaches Installed (or
 *                  Downloaded with no callback)
 * @description
 * - The call blocks until the task is terminal
 * - On any URL failure the task advances current_url_index and retries
 *   from byte zero; the failed URL is appended to failed_urls
 * - Fallback stops when the list is exhausted (Failed) or the task was
 *   cancelled between attempts
 */
func (dm *DownloadManager) StartDownload(id string, urls []string, dir, filename string, overwrite bool, onSuccess InstallCallback) error {
	if len(urls) == 0 {
		return fmt.Errorf("download %s: no urls given", id)
	}
	targetPath := filepath.Join(dir, filename)
	if !overwrite {
		if _, err := os.Stat(targetPath); err == nil {
			return fmt.Errorf("download %s: target '%s' already exists", id, targetPath)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	dm.mu.Lock()
	entry := &downloadEntry{
		task: models.DownloadTask{
			ID:         id,
			URLs:       urls,
			URL:        urls[0],
			TargetPath: targetPath,
			Filename:   filename,
			Status:     models.DownloadPending,
		},
		onSuccess: onSuccess,
	}
	dm.tasks[id] = entry
	dm.mu.Unlock()

	return dm.run(entry)
}

func (dm *DownloadManager) run(entry *downloadEntry) error {
	var lastErr error
	for {
		dm.mu.Lock()
		task := &entry.task
		if task.Status == models.DownloadCancelled {
			dm.mu.Unlock()
			recordDownloadOutcome("cancelled")
			return fmt.Errorf("download %s cancelled", task.ID)
		}
		if task.CurrentURLIndex >= len(task.URLs) {
			task.Status = models.DownloadFailed
			failed := append([]string(nil), task.FailedURLs...)
			err := &models.DownloadError{TaskID: task.ID, FailedURLs: failed, LastErr: lastErr}
			task.Error = err.Error()
			dm.mu.Unlock()
			recordDownloadOutcome("failed")
			return err
		}
		task.URL = task.URLs[task.CurrentURLIndex]
		task.Status = models.DownloadDownloading
		task.DownloadedSize = 0
		task.Progress = 0
		url := task.URL
		target := task.TargetPath
		dm.mu.Unlock()

		logger.Infof("Download [%s] trying %s", entry.task.ID, url)
		err := dm.streamOne(entry, url, target)
		if err == nil {
			return dm.finish(entry)
		}

		dm.mu.Lock()
		cancelled := entry.task.Status == models.DownloadCancelled
		if !cancelled {
			entry.task.FailedURLs = append(entry.task.FailedURLs, url)
			entry.task.CurrentURLIndex++
			lastErr = err
			logger.Warnf("Download [%s] url %s failed: %v", entry.task.ID, url, err)
		}
		dm.mu.Unlock()
		if cancelled {
			recordDownloadOutcome("cancelled")
			return fmt.Errorf("download %s cancelled", entry.task.ID)
		}
	}
}

// streamOne downloads one URL to the target path, refreshing progress
// per chunk and observing cancellation between chunks.
func (dm *DownloadManager) streamOne(entry *downloadEntry, url, target string) error {
	resp, err := dm.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status %d", resp.StatusCode)
	}

	dm.mu.Lock()
	entry.task.TotalSize = resp.ContentLength
	dm.mu.Unlock()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	buf := make([]byte, downloadChunkSize)
	lastLog := time.Now()
	for {
		dm.mu.Lock()
		cancelled := entry.task.Status == models.DownloadCancelled
		dm.mu.Unlock()
		if cancelled {
			return fmt.Errorf("cancelled")
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
			recordDownloadBytes(int64(n))
			dm.mu.Lock()
			entry.task.DownloadedSize += int64(n)
			if entry.task.TotalSize > 0 {
				entry.task.Progress = float64(entry.task.DownloadedSize) / float64(entry.task.TotalSize) * 100
			} else {
				entry.task.Progress = -1
			}
			downloaded, total := entry.task.DownloadedSize, entry.task.TotalSize
			dm.mu.Unlock()
			if time.Since(lastLog) >= time.Second {
				logger.Infof("Download [%s] %d/%d bytes", entry.task.ID, downloaded, total)
				lastLog = time.Now()
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

func (dm *DownloadManager) finish(entry *downloadEntry) error {
	dm.mu.Lock()
	entry.task.Status = models.DownloadDownloaded
	entry.task.Progress = 100
	snapshot := entry.task
	callback := entry.onSuccess
	arming := entry.arming
	dm.mu.Unlock()

	logger.Infof("Download [%s] completed: %s", snapshot.ID, snapshot.TargetPath)
	if callback == nil {
		recordDownloadOutcome("downloaded")
		return nil
	}
	err := callback(&snapshot)

	// When the callback rearmed the task for another phase, that phase's
	// own run already counted the final outcome.
	dm.mu.Lock()
	rearmed := entry.arming != arming
	dm.mu.Unlock()

	if err != nil {
		dm.SetStatus(snapshot.ID, models.DownloadFailed, err.Error())
		if !rearmed {
			recordDownloadOutcome("failed")
		}
		return err
	}
	if !rearmed {
		recordDownloadOutcome("installed")
	}
	return nil
}

/**
 * Cancel a task and remove its partial file
 * @description
 * - Safe to call from any thread; the streaming loop observes the flag
 *   between chunks, and fallback is suppressed between attempts
 * - Guarantees the task will not transition to Installed
 */
func (dm *DownloadManager) Cancel(id string) error {
	dm.mu.Lock()
	entry, ok := dm.tasks[id]
	if !ok {
		dm.mu.Unlock()
		return fmt.Errorf("download task %s: %w", id, models.ErrNotFound)
	}
	if entry.task.Status == models.DownloadInstalled {
		dm.mu.Unlock()
		return fmt.Errorf("download task %s already installed", id)
	}
	entry.task.Status = models.DownloadCancelled
	target := entry.task.TargetPath
	dm.mu.Unlock()

	os.Remove(target)
	utils.RemoveDirIfEmpty(filepath.Dir(target))
	logger.Infof("Download [%s] cancelled", id)
	return nil
}

// GetTask returns a snapshot of the task, false when the id is unknown.
func (dm *DownloadManager) GetTask(id string) (models.DownloadTask, bool) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	entry, ok := dm.tasks[id]
	if !ok {
		return models.DownloadTask{}, false
	}
	return entry.task, true
}

// ListTasks returns snapshots of every registered task.
func (dm *DownloadManager) ListTasks() []models.DownloadTask {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	out := make([]models.DownloadTask, 0, len(dm.tasks))
	for _, entry := range dm.tasks {
		out = append(out, entry.task)
	}
	return out
}

/**
 * SetStatus moves a task to the given status
 * @description
 * - Install callbacks use this to drive Downloaded -> Installing ->
 *   Installed (or Failed)
 * - Transitions out of terminal states are rejected; Rearm is the only
 *   sanctioned way to leave one
 */
func (dm *DownloadManager) SetStatus(id string, status models.DownloadStatus, errMsg string) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	entry, ok := dm.tasks[id]
	if !ok {
		return fmt.Errorf("download task %s: %w", id, models.ErrNotFound)
	}
	if entry.task.Status.Terminal() && status != entry.task.Status {
		return fmt.Errorf("download task %s: transition %s -> %s not allowed",
			id, entry.task.Status, status)
	}
	entry.task.Status = status
	entry.task.Error = errMsg
	return nil
}

// ForceStatus overrides the terminal-state guard. Reserved for
// multi-phase installers that settle a rearmed task after a non-fatal
// companion failure (MongoDB without mongosh is still Installed).
func (dm *DownloadManager) ForceStatus(id string, status models.DownloadStatus, errMsg string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if entry, ok := dm.tasks[id]; ok {
		entry.task.Status = status
		entry.task.Error = errMsg
	}
}

/**
 * Rearm reuses a task id for a subsequent download phase
 * @description
 * - Deliberate non-monotonic transition on the task state machine
 *   (MongoDB then mongosh); observers must treat it as a normal step
 * - The task keeps its id and failed_urls history, everything else is
 *   reset for the new URL list
 */
func (dm *DownloadManager) Rearm(id string, urls []string, dir, filename string, onSuccess InstallCallback) error {
	if len(urls) == 0 {
		return fmt.Errorf("rearm %s: no urls given", id)
	}
	dm.mu.Lock()
	entry, ok := dm.tasks[id]
	if !ok {
		dm.mu.Unlock()
		return fmt.Errorf("download task %s: %w", id, models.ErrNotFound)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		dm.mu.Unlock()
		return err
	}
	entry.task.URLs = urls
	entry.task.CurrentURLIndex = 0
	entry.task.URL = urls[0]
	entry.task.TargetPath = filepath.Join(dir, filename)
	entry.task.Filename = filename
	entry.task.TotalSize = 0
	entry.task.DownloadedSize = 0
	entry.task.Progress = 0
	entry.task.Status = models.DownloadPending
	entry.task.Error = ""
	entry.onSuccess = onSuccess
	entry.arming++
	dm.mu.Unlock()

	logger.Infof("Download [%s] rearmed with %d urls", id, len(urls))
	return dm.run(entry)
}
