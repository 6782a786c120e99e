package services

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"envis/internal/models"
)

func servePayload(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func serveStatus(t *testing.T, code int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloadFallsBackToNextMirror(t *testing.T) {
	bad := serveStatus(t, http.StatusServiceUnavailable)
	good := servePayload(t, "mirror-two-payload")
	dm := NewDownloadManager()
	dir := t.TempDir()

	installed := false
	err := dm.StartDownload("nodejs-v20.19.1", []string{bad.URL, good.URL}, dir, "node.tar.gz", false,
		func(task *models.DownloadTask) error {
			if err := dm.SetStatus(task.ID, models.DownloadInstalling, ""); err != nil {
				return err
			}
			installed = true
			return dm.SetStatus(task.ID, models.DownloadInstalled, "")
		})
	if err != nil {
		t.Fatalf("StartDownload: %v", err)
	}
	if !installed {
		t.Fatal("install callback did not run")
	}

	task, ok := dm.GetTask("nodejs-v20.19.1")
	if !ok {
		t.Fatal("task not registered")
	}
	if task.Status != models.DownloadInstalled {
		t.Errorf("status = %s, want %s", task.Status, models.DownloadInstalled)
	}
	if task.CurrentURLIndex != 1 {
		t.Errorf("current_url_index = %d, want 1", task.CurrentURLIndex)
	}
	if task.URL != good.URL {
		t.Errorf("url = %s, want %s", task.URL, good.URL)
	}
	if diff := cmp.Diff([]string{bad.URL}, task.FailedURLs); diff != "" {
		t.Errorf("failed_urls mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(filepath.Join(dir, "node.tar.gz"))
	if err != nil {
		t.Fatalf("reading target: %v", err)
	}
	if string(data) != "mirror-two-payload" {
		t.Errorf("target content = %q, want bytes from the second mirror", data)
	}
}

func TestDownloadFailsWhenAllMirrorsExhausted(t *testing.T) {
	bad1 := serveStatus(t, http.StatusNotFound)
	bad2 := serveStatus(t, http.StatusBadGateway)
	dm := NewDownloadManager()

	err := dm.StartDownload("python-v3.12.0", []string{bad1.URL, bad2.URL}, t.TempDir(), "py.tar.gz", false, nil)
	if err == nil {
		t.Fatal("expected error after exhausting mirrors")
	}
	var dlErr *models.DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("error type = %T, want *models.DownloadError", err)
	}
	if diff := cmp.Diff([]string{bad1.URL, bad2.URL}, dlErr.FailedURLs); diff != "" {
		t.Errorf("failed_urls mismatch (-want +got):\n%s", diff)
	}

	task, _ := dm.GetTask("python-v3.12.0")
	if task.Status != models.DownloadFailed {
		t.Errorf("status = %s, want %s", task.Status, models.DownloadFailed)
	}
}

func TestCancelStopsStreamAndSuppressesFallback(t *testing.T) {
	sent := make(chan struct{})
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Declare more bytes than we send so the client sees a broken
		// stream instead of a clean EOF once the handler returns.
		w.Header().Set("Content-Length", "1048576")
		fmt.Fprint(w, "partial-chunk")
		w.(http.Flusher).Flush()
		close(sent)
		<-release
	}))
	defer slow.Close()

	var mirrorHits int32
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&mirrorHits, 1)
	}))
	defer mirror.Close()

	dm := NewDownloadManager()
	dir := t.TempDir()
	done := make(chan error, 1)
	go func() {
		done <- dm.StartDownload("java-v21.0.2", []string{slow.URL, mirror.URL}, dir, "jdk.tar.gz", false, nil)
	}()

	<-sent
	deadline := time.Now().Add(10 * time.Second)
	for {
		if task, ok := dm.GetTask("java-v21.0.2"); ok && task.DownloadedSize > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("download never received the first chunk")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := dm.Cancel("java-v21.0.2"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	close(release)

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected StartDownload to report cancellation")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("StartDownload did not return after cancel")
	}

	task, _ := dm.GetTask("java-v21.0.2")
	if task.Status != models.DownloadCancelled {
		t.Errorf("status = %s, want %s", task.Status, models.DownloadCancelled)
	}
	if len(task.FailedURLs) != 0 {
		t.Errorf("failed_urls = %v, want none after cancel", task.FailedURLs)
	}
	if atomic.LoadInt32(&mirrorHits) != 0 {
		t.Error("fallback mirror was contacted after cancel")
	}
	if _, err := os.Stat(task.TargetPath); !os.IsNotExist(err) {
		t.Errorf("partial file still present at %s", task.TargetPath)
	}
}

func TestSetStatusRejectsLeavingTerminalState(t *testing.T) {
	good := servePayload(t, "x")
	dm := NewDownloadManager()

	err := dm.StartDownload("nginx-v1.27.0", []string{good.URL}, t.TempDir(), "nginx.tar.gz", false,
		func(task *models.DownloadTask) error {
			return dm.SetStatus(task.ID, models.DownloadInstalled, "")
		})
	if err != nil {
		t.Fatalf("StartDownload: %v", err)
	}

	if err := dm.SetStatus("nginx-v1.27.0", models.DownloadDownloading, ""); err == nil {
		t.Error("expected transition out of installed to be rejected")
	}
	task, _ := dm.GetTask("nginx-v1.27.0")
	if task.Status != models.DownloadInstalled {
		t.Errorf("status = %s, want unchanged %s", task.Status, models.DownloadInstalled)
	}
}

func TestForceStatusOverridesTerminalGuard(t *testing.T) {
	bad := serveStatus(t, http.StatusNotFound)
	dm := NewDownloadManager()

	if err := dm.StartDownload("mongodb-v7.0.14", []string{bad.URL}, t.TempDir(), "mongo.tgz", false, nil); err == nil {
		t.Fatal("expected failure")
	}
	dm.ForceStatus("mongodb-v7.0.14", models.DownloadInstalled, "")
	task, _ := dm.GetTask("mongodb-v7.0.14")
	if task.Status != models.DownloadInstalled {
		t.Errorf("status = %s, want %s after ForceStatus", task.Status, models.DownloadInstalled)
	}
}

func TestRearmReusesTaskIDAndKeepsFailureHistory(t *testing.T) {
	bad := serveStatus(t, http.StatusNotFound)
	good := servePayload(t, "server-bits")
	companion := servePayload(t, "shell-bits")
	dm := NewDownloadManager()
	dir := t.TempDir()

	if err := dm.StartDownload("mongodb-v7.0.14", []string{bad.URL, good.URL}, dir, "mongod.tgz", false, nil); err != nil {
		t.Fatalf("first phase: %v", err)
	}
	if err := dm.Rearm("mongodb-v7.0.14", []string{companion.URL}, dir, "mongosh.tgz", nil); err != nil {
		t.Fatalf("Rearm: %v", err)
	}

	task, ok := dm.GetTask("mongodb-v7.0.14")
	if !ok {
		t.Fatal("task vanished after rearm")
	}
	if task.Status != models.DownloadDownloaded {
		t.Errorf("status = %s, want %s", task.Status, models.DownloadDownloaded)
	}
	if task.Filename != "mongosh.tgz" {
		t.Errorf("filename = %s, want mongosh.tgz", task.Filename)
	}
	if diff := cmp.Diff([]string{bad.URL}, task.FailedURLs); diff != "" {
		t.Errorf("failed_urls should survive rearm (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(dir, "mongosh.tgz")); err != nil {
		t.Errorf("companion artifact missing: %v", err)
	}
}

func TestRearmRejectsEmptyURLList(t *testing.T) {
	good := servePayload(t, "bits")
	dm := NewDownloadManager()

	if err := dm.StartDownload("mongodb-v6.0.4", []string{good.URL}, t.TempDir(), "mongod.tgz", false, nil); err != nil {
		t.Fatalf("first phase: %v", err)
	}
	if err := dm.Rearm("mongodb-v6.0.4", nil, t.TempDir(), "mongosh.tgz", nil); err == nil {
		t.Error("expected rearm with no urls to be refused")
	}
	task, _ := dm.GetTask("mongodb-v6.0.4")
	if task.Status != models.DownloadDownloaded {
		t.Errorf("status = %s, refused rearm must leave the task untouched", task.Status)
	}
	if task.Filename != "mongod.tgz" {
		t.Errorf("filename = %s, refused rearm must leave the task untouched", task.Filename)
	}
}

// A dual-phase install (mongod then mongosh) is one task reaching one
// terminal state; the outcome counter must not tick once per arming.
func TestChainedRearmCountsOneOutcome(t *testing.T) {
	server := servePayload(t, "server-bits")
	shell := servePayload(t, "shell-bits")
	dm := NewDownloadManager()
	dir := t.TempDir()

	before := testutil.ToFloat64(downloadTotal.WithLabelValues("installed"))
	err := dm.StartDownload("mongodb-v7.0.14", []string{server.URL}, dir, "mongod.tgz", false,
		func(task *models.DownloadTask) error {
			if err := dm.SetStatus(task.ID, models.DownloadInstalling, ""); err != nil {
				return err
			}
			return dm.Rearm(task.ID, []string{shell.URL}, dir, "mongosh.tgz",
				func(task *models.DownloadTask) error {
					if err := dm.SetStatus(task.ID, models.DownloadInstalling, ""); err != nil {
						return err
					}
					return dm.SetStatus(task.ID, models.DownloadInstalled, "")
				})
		})
	if err != nil {
		t.Fatalf("StartDownload: %v", err)
	}

	task, _ := dm.GetTask("mongodb-v7.0.14")
	if task.Status != models.DownloadInstalled {
		t.Fatalf("status = %s, want %s", task.Status, models.DownloadInstalled)
	}
	if got := testutil.ToFloat64(downloadTotal.WithLabelValues("installed")) - before; got != 1 {
		t.Errorf("installed outcomes recorded = %v, want 1 for the whole chain", got)
	}
}

func TestStartDownloadRefusesExistingTarget(t *testing.T) {
	good := servePayload(t, "fresh")
	dm := NewDownloadManager()
	dir := t.TempDir()
	target := filepath.Join(dir, "pg.tar.gz")
	if err := os.WriteFile(target, []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := dm.StartDownload("postgresql-v16.4", []string{good.URL}, dir, "pg.tar.gz", false, nil); err == nil {
		t.Error("expected refusal without overwrite")
	}
	if err := dm.StartDownload("postgresql-v16.4", []string{good.URL}, dir, "pg.tar.gz", true, nil); err != nil {
		t.Fatalf("overwrite run: %v", err)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "fresh" {
		t.Errorf("target content = %q, want %q", data, "fresh")
	}
}
