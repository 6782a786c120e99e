package services

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"envis/internal/models"
)

// tarGzArchive builds a small in-memory tar.gz with a single leading
// component, the shape every runtime distribution ships in.
func tarGzArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for name, content := range entries {
		hdr := &tar.Header{Name: name, Mode: 0755, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestStandardInstallerInstallsArchive(t *testing.T) {
	archive := tarGzArchive(t, map[string]string{
		"tool-v1.0.0/bin/tool": "#!tool",
		"tool-v1.0.0/README": "readme",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	dm := NewDownloadManager()
	servicesDir := t.TempDir()
	si := NewStandardInstaller(models.TypePython, servicesDir, dm,
		func(version string) ([]string, string, error) {
			return []string{srv.URL}, "python.tar.gz", nil
		}, nil)

	if si.IsInstalled("v3.12.0") {
		t.Fatal("IsInstalled true before install")
	}
	if err := si.DownloadAndInstall("v3.12.0"); err != nil {
		t.Fatalf("DownloadAndInstall: %v", err)
	}
	if !si.IsInstalled("v3.12.0") {
		t.Error("IsInstalled false after install")
	}

	installDir := si.InstallDir("v3.12.0")
	data, err := os.ReadFile(filepath.Join(installDir, "bin", "tool"))
	if err != nil {
		t.Fatalf("extracted binary missing: %v", err)
	}
	if string(data) != "#!tool" {
		t.Errorf("binary content = %q", data)
	}
	if _, err := os.Stat(filepath.Join(installDir, "python.tar.gz")); !os.IsNotExist(err) {
		t.Error("archive not removed after extraction")
	}

	task, ok := dm.GetTask(TaskID(models.TypePython, "v3.12.0"))
	if !ok || task.Status != models.DownloadInstalled {
		t.Errorf("task status = %v, want %s", task.Status, models.DownloadInstalled)
	}
}

// zipArchive builds a small in-memory zip nested under one top-level
// directory, the shape PostgreSQL and the Windows runtimes ship in.
func zipArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// The downloader drops the zip into the install directory before
// extraction, so the wrapper-directory hoist has to cope with the
// archive sitting next to the unpacked tree.
func TestStandardInstallerHoistsZipWrapperDirectory(t *testing.T) {
	archive := zipArchive(t, map[string]string{
		"pgsql/bin/psql": "#!psql",
		"pgsql/share/postgresql.conf": "port = 5432",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	dm := NewDownloadManager()
	si := NewStandardInstaller(models.TypePostgreSQL, t.TempDir(), dm,
		func(version string) ([]string, string, error) {
			return []string{srv.URL}, "postgresql.zip", nil
		}, nil)

	if err := si.DownloadAndInstall("v16.4"); err != nil {
		t.Fatalf("DownloadAndInstall: %v", err)
	}

	installDir := si.InstallDir("v16.4")
	data, err := os.ReadFile(filepath.Join(installDir, "bin", "psql"))
	if err != nil {
		t.Fatalf("bin/psql not at the install root: %v", err)
	}
	if string(data) != "#!psql" {
		t.Errorf("binary content = %q", data)
	}
	if _, err := os.Stat(filepath.Join(installDir, "pgsql")); !os.IsNotExist(err) {
		t.Error("wrapper directory survived the hoist")
	}
	if _, err := os.Stat(filepath.Join(installDir, "postgresql.zip")); !os.IsNotExist(err) {
		t.Error("archive not removed after extraction")
	}
}

func TestStandardInstallerPostInstallFailureFailsTask(t *testing.T) {
	archive := tarGzArchive(t, map[string]string{"x/README": "r"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	dm := NewDownloadManager()
	si := NewStandardInstaller(models.TypeMariaDB, t.TempDir(), dm,
		func(version string) ([]string, string, error) {
			return []string{srv.URL}, "maria.tar.gz", nil
		}, nil)
	si.postInstall = func(installDir, version string) error {
		return &models.InstallError{Step: "post-install", Err: errors.New("boom")}
	}

	err := si.DownloadAndInstall("v11.4.2")
	if err == nil {
		t.Fatal("expected post-install failure to propagate")
	}
	var instErr *models.InstallError
	if !errors.As(err, &instErr) || instErr.Step != "post-install" {
		t.Errorf("error = %v, want InstallError from the post-install step", err)
	}
	task, _ := dm.GetTask(TaskID(models.TypeMariaDB, "v11.4.2"))
	if task.Status != models.DownloadFailed {
		t.Errorf("task status = %s, want %s", task.Status, models.DownloadFailed)
	}
}

func TestStandardInstallerUninstall(t *testing.T) {
	si := NewStandardInstaller(models.TypeNodejs, t.TempDir(), NewDownloadManager(), nil, nil)

	if err := si.Uninstall("v20.19.1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Uninstall of missing version = %v, want ErrNotFound", err)
	}

	dir := si.InstallDir("v20.19.1")
	if err := os.MkdirAll(filepath.Join(dir, "bin"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := si.Uninstall("v20.19.1"); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("installation directory still present")
	}
}

func TestInstallerRegistryCoversAllInstallableTypes(t *testing.T) {
	r := NewInstallerRegistry(t.TempDir(), NewDownloadManager())
	for _, st := range []models.ServiceType{
		models.TypeNodejs, models.TypePython, models.TypeJava,
		models.TypeMongoDB, models.TypeMariaDB, models.TypeMySQL,
		models.TypePostgreSQL, models.TypeNginx, models.TypeDnsmasq,
	} {
		in, err := r.Get(st)
		if err != nil {
			t.Errorf("Get(%s): %v", st, err)
			continue
		}
		if in.Type() != st {
			t.Errorf("Get(%s) returned installer for %s", st, in.Type())
		}
	}
	if _, err := r.Get(models.TypeCustom); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Get(custom) = %v, want ErrNotFound", err)
	}
}

func TestMavenVersionMatrix(t *testing.T) {
	cases := map[string]string{
		"8.0.402": "3.8.8",
		"11.0.22": "3.9.6",
		"17.0.10": "3.9.9",
		"21.0.2": "3.9.9",
		"notsemver": "3.9.9",
	}
	for java, want := range cases {
		if got := mavenVersionFor(java); got != want {
			t.Errorf("mavenVersionFor(%s) = %s, want %s", java, got, want)
		}
	}
}
