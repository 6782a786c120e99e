package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BackupSuffix marks rotated copies of files the shell writer touches.
const BackupSuffix = ".envbak"

// MaxBackups is the number of rotated copies kept per file.
const MaxBackups = 2

/**
 * Write file atomically with respect to concurrent readers
 * @param {string} path - Final destination path
 * @param {[]byte} data - Full new content
 * @param {os.FileMode} perm - Mode used when the file is created
 * @returns {error} Returns error if write fails, nil on success
 * @description
 * - Writes a sibling temp file, fsyncs it, then renames over the target
 * - A failed write removes the temp file and leaves the target untouched
 */
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file in '%s': %v", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file '%s': %v", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file '%s': %v", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename '%s' -> '%s': %v", tmpName, path, err)
	}
	return nil
}

/**
 * Write file atomically after backing up the prior contents
 * @description
 * - On success the prior contents are copied to "{path}.envbak{unix-ns}"
 * - Only the newest MaxBackups backups are kept, older ones are pruned
 */
func WriteFileWithBackup(path string, data []byte, perm os.FileMode) error {
	prior, readErr := os.ReadFile(path)
	if err := AtomicWriteFile(path, data, perm); err != nil {
		return err
	}
	if readErr != nil {
		// 目标文件原本不存在，无需备份
		return nil
	}
	backup := fmt.Sprintf("%s%s%d", path, BackupSuffix, time.Now().UnixNano())
	if err := os.WriteFile(backup, prior, perm); err != nil {
		return nil
	}
	pruneBackups(path)
	return nil
}

func pruneBackups(path string) {
	pattern := filepath.Base(path) + BackupSuffix
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var backups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), pattern) {
			backups = append(backups, e.Name())
		}
	}
	if len(backups) <= MaxBackups {
		return
	}
	// 时间戳后缀按字典序即按时间排序（同长度时）；长度优先保证纳秒数位增长时仍正确
	sort.Slice(backups, func(i, j int) bool {
		if len(backups[i]) != len(backups[j]) {
			return len(backups[i]) < len(backups[j])
		}
		return backups[i] < backups[j]
	})
	for _, name := range backups[:len(backups)-MaxBackups] {
		os.Remove(filepath.Join(dir, name))
	}
}

/**
 * Copy file preserving mode
 */
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

/**
 * Recursively copy a directory tree, best effort
 * @returns {error} Returns error only when the top-level target cannot be created
 * @description
 * - Individual file failures are collected into the returned slice of
 *   messages so the caller can log them without aborting the copy
 */
func CopyDirBestEffort(src, dst string) ([]string, error) {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return nil, fmt.Errorf("create target directory '%s': %v", dst, err)
	}
	var warnings []string
	filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("walk '%s': %v", path, err))
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil || rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				warnings = append(warnings, fmt.Sprintf("mkdir '%s': %v", target, err))
			}
			return nil
		}
		if err := CopyFile(path, target); err != nil {
			warnings = append(warnings, fmt.Sprintf("copy '%s': %v", path, err))
		}
		return nil
	})
	return warnings, nil
}

// RemoveDirIfEmpty prunes a directory that no longer holds any entry.
func RemoveDirIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		os.Remove(dir)
	}
}
