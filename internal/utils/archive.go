package utils

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/xi2/xz"
)

/**
 * Extract archive into destination directory, stripping one leading component
 * @param {string} src - Archive path (.tar, .tar.gz, .tgz, .tar.bz2, .tar.xz, .zip, .7z)
 * @param {string} dest - Installation directory; created when missing
 * @returns {error} Returns error if extraction fails, nil on success
 * @description
 * - Tar variants are unpacked with the semantics of --strip-components=1
 * - Zip/7z archives are unpacked verbatim; when the archive has a single
 *   top-level directory different from dest, its contents are hoisted up
 */
func ExtractArchive(src, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	switch {
	case strings.HasSuffix(src, ".zip"):
		if err := extractZip(src, dest); err != nil {
			return err
		}
		return hoistSingleTopLevel(dest, src)
	case strings.HasSuffix(src, ".7z"):
		if err := extract7z(src, dest); err != nil {
			return err
		}
		return hoistSingleTopLevel(dest, src)
	case strings.HasSuffix(src, ".tar"), strings.HasSuffix(src, ".tar.gz"), strings.HasSuffix(src, ".tgz"),
		strings.HasSuffix(src, ".tar.bz2"), strings.HasSuffix(src, ".tar.xz"):
		return extractTarArchive(src, dest)
	default:
		return fmt.Errorf("unsupported archive format: %s", src)
	}
}

// extractTarArchive handles tar and compressed tar variants. The first
// path component of every entry is stripped.
func extractTarArchive(src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var reader io.Reader = f
	switch {
	case strings.HasSuffix(src, ".tar.gz"), strings.HasSuffix(src, ".tgz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gr.Close()
		reader = gr
	case strings.HasSuffix(src, ".tar.bz2"):
		reader = bzip2.NewReader(f)
	case strings.HasSuffix(src, ".tar.xz"):
		xzr, err := xz.NewReader(f, 0)
		if err != nil {
			return err
		}
		reader = xzr
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		name := stripFirstComponent(hdr.Name)
		if name == "" {
			continue
		}
		target := filepath.Join(dest, name)
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", hdr.Name)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeSymlink:
			os.MkdirAll(filepath.Dir(target), 0755)
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil && runtime.GOOS != "windows" {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			outFile, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(outFile, tr); err != nil {
				outFile.Close()
				return err
			}
			outFile.Close()
		}
	}
	return nil
}

func stripFirstComponent(name string) string {
	name = filepath.ToSlash(name)
	idx := strings.Index(name, "/")
	if idx < 0 {
		return ""
	}
	return filepath.FromSlash(name[idx+1:])
}

// extractZip extracts a .zip archive verbatim
func extractZip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		path := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(path, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			os.MkdirAll(path, 0755)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		outFile, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			outFile.Close()
			return err
		}
		_, err = io.Copy(outFile, rc)
		rc.Close()
		outFile.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// extract7z handles .7z extraction using the sevenzip library
func extract7z(src, dest string) error {
	r, err := sevenzip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open 7z archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		path := filepath.Join(dest, f.Name)
		if f.FileInfo().IsDir() {
			os.MkdirAll(path, f.Mode())
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		outFile, err := os.Create(path)
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(outFile, rc)
		rc.Close()
		outFile.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

/**
 * Hoist the contents of a lone top-level directory into its parent
 * @description
 * - Zip archives usually nest everything under "{name}-{version}/"; when
 *   dest contains exactly one directory and nothing else, its children
 *   are moved up and the directory is removed
 * - Installers download the archive into dest itself, so the archive file
 *   is excluded when counting top-level entries
 */
func hoistSingleTopLevel(dest, archive string) error {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return err
	}
	archive = filepath.Clean(archive)
	tops := entries[:0]
	for _, e := range entries {
		if filepath.Join(dest, e.Name()) == archive {
			continue
		}
		tops = append(tops, e)
	}
	if len(tops) != 1 || !tops[0].IsDir() {
		return nil
	}
	top := filepath.Join(dest, tops[0].Name())
	children, err := os.ReadDir(top)
	if err != nil {
		return err
	}
	for _, child := range children {
		from := filepath.Join(top, child.Name())
		to := filepath.Join(dest, child.Name())
		if err := os.Rename(from, to); err != nil {
			return err
		}
	}
	return os.Remove(top)
}

/**
 * Mark conventional executable directories as executable
 * @description
 * - After extraction on Unix, files under bin/ and sbin/ are chmod 0755
 * - No-op on Windows
 */
func MarkExecutables(installDir string) {
	if runtime.GOOS == "windows" {
		return
	}
	for _, sub := range []string{"bin", "sbin"} {
		dir := filepath.Join(installDir, sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			os.Chmod(filepath.Join(dir, e.Name()), 0755)
		}
	}
}
