package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"envis/internal/logger"
	"envis/internal/models"
	"envis/internal/utils"
)

const (
	hostsBlockBegin = "# BEGIN Envis Managed Hosts Block"
	hostsBlockEnd   = "# END Envis Managed Hosts Block"
)

// Sudo prints these on a rejected password depending on locale and
// configuration. Kept in one table so it can be extended.
var sudoPasswordErrors = []string{
	"incorrect password",
	"Sorry, try again",
}

/**
 * HostsManager owns a delimited block inside the OS hosts file
 * @description
 * - Reads are permission free; writes go through a privileged copy
 * - Entries merge by (ip, hostname); a disabled entry is written as
 *   "# ip host" inside the block
 */
type HostsManager struct {
	mu     sync.Mutex
	path   string
	direct bool
}

func NewHostsManager() *HostsManager {
	return &HostsManager{path: hostsFilePath()}
}

// NewHostsManagerAt is the test seam; it writes the file directly
// instead of going through the privileged copy.
func NewHostsManagerAt(path string) *HostsManager {
	return &HostsManager{path: path, direct: true}
}

func hostsFilePath() string {
	if runtime.GOOS == "windows" {
		root := os.Getenv("SystemRoot")
		if root == "" {
			root = `C:\Windows`
		}
		return filepath.Join(root, "System32", "drivers", "etc", "hosts")
	}
	return "/etc/hosts"
}

/**
 * List the entries of the managed block
 * @returns {[]HostEntry, error} Returns entries in file order
 * @description
 * - Lines outside the block are never touched or reported
 * - "# ip host" inside the block parses as a disabled entry; other
 *   comments are skipped
 */
func (m *HostsManager) List() ([]models.HostEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, _, _, err := m.read()
	return entries, err
}

func (m *HostsManager) read() (entries []models.HostEntry, before, after []string, err error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil, nil
		}
		return nil, nil, nil, err
	}
	lines := splitLines(string(data))

	begin, end := -1, -1
	for i, line := range lines {
		switch strings.TrimSpace(line) {
		case hostsBlockBegin:
			if begin != -1 {
				return nil, nil, nil, models.ErrCorruptedState
			}
			begin = i
		case hostsBlockEnd:
			if end != -1 {
				return nil, nil, nil, models.ErrCorruptedState
			}
			end = i
		}
	}
	if begin == -1 && end == -1 {
		return nil, lines, nil, nil
	}
	if begin == -1 || end == -1 || end < begin {
		return nil, nil, nil, models.ErrCorruptedState
	}

	for _, line := range lines[begin+1 : end] {
		if e, ok := parseHostLine(line); ok {
			entries = append(entries, e)
		}
	}
	return entries, lines[:begin], lines[end+1:], nil
}

func parseHostLine(line string) (models.HostEntry, bool) {
	enabled := true
	s := strings.TrimSpace(line)
	if strings.HasPrefix(s, "#") {
		enabled = false
		s = strings.TrimSpace(strings.TrimPrefix(s, "#"))
	}
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return models.HostEntry{}, false
	}
	e := models.HostEntry{
		IP:       fields[0],
		Hostname: fields[1],
		Enabled:  enabled,
	}
	if len(fields) > 2 && fields[2] == "#" {
		e.Comment = strings.Join(fields[3:], " ")
	}
	e.ID = models.HostEntryID(e.IP, e.Hostname)
	return e, true
}

func formatHostLine(e models.HostEntry) string {
	line := fmt.Sprintf("%s %s", e.IP, e.Hostname)
	if e.Comment != "" {
		line += " # " + e.Comment
	}
	if !e.Enabled {
		line = "# " + line
	}
	return line
}

/**
 * Merge entries into the managed block
 * @param {string} password - Admin password for the privileged write
 * @description
 * - An incoming entry replaces an existing one with the same
 *   (ip, hostname) key; adding an identical enabled entry twice is
 *   AlreadyExists
 */
func (m *HostsManager) AddHosts(incoming []models.HostEntry, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, before, after, err := m.read()
	if err != nil {
		return err
	}
	index := map[string]int{}
	for i, e := range entries {
		index[e.ID] = i
	}
	for _, in := range incoming {
		in.ID = models.HostEntryID(in.IP, in.Hostname)
		if i, ok := index[in.ID]; ok {
			if entries[i] == in {
				return fmt.Errorf("host entry '%s': %w", in.ID, models.ErrAlreadyExists)
			}
			entries[i] = in
			continue
		}
		index[in.ID] = len(entries)
		entries = append(entries, in)
	}
	return m.write(entries, before, after, password)
}

// RemoveHosts deletes entries by (ip, hostname) key. Unknown keys are
// ignored so removal is idempotent.
func (m *HostsManager) RemoveHosts(victims []models.HostEntry, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, before, after, err := m.read()
	if err != nil {
		return err
	}
	drop := map[string]bool{}
	for _, v := range victims {
		drop[models.HostEntryID(v.IP, v.Hostname)] = true
	}
	kept := entries[:0]
	for _, e := range entries {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	return m.write(kept, before, after, password)
}

func (m *HostsManager) write(entries []models.HostEntry, before, after []string, password string) error {
	if before == nil {
		before = []string{}
	}
	lines := append([]string{}, before...)
	lines = append(lines, hostsBlockBegin)
	for _, e := range entries {
		lines = append(lines, formatHostLine(e))
	}
	lines = append(lines, hostsBlockEnd)
	lines = append(lines, after...)
	content := joinLines(lines)

	if m.direct || runtime.GOOS == "windows" {
		// Windows has no sudo equivalent to pipe a password into; the
		// process itself must already run elevated.
		if err := utils.AtomicWriteFile(m.path, []byte(content), 0o644); err != nil {
			if os.IsPermission(err) {
				return models.ErrNeedsAdmin
			}
			return err
		}
		return nil
	}
	return m.privilegedCopy(content, password)
}

// privilegedCopy stages the new hosts content in a temp file and copies
// it over the real one with sudo, password piped to stdin.
func (m *HostsManager) privilegedCopy(content, password string) error {
	tmp, err := os.CreateTemp("", "envis-hosts-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	res, err := utils.RunCommandWithStdin(context.Background(), password+"\n",
		"sudo", "-S", "-k", "cp", tmpPath, m.path)
	if err != nil {
		return classifySudoFailure(res.Stderr, err)
	}
	return nil
}

// classifySudoFailure surfaces a wrong sudo password as the typed error so
// callers can reprompt instead of showing a raw cp failure.
func classifySudoFailure(stderr string, err error) error {
	for _, marker := range sudoPasswordErrors {
		if strings.Contains(stderr, marker) {
			return models.ErrPasswordIncorrect
		}
	}
	logger.Errorf("Privileged hosts write failed: %v\n%s", err, stderr)
	return fmt.Errorf("write hosts file: %w", err)
}
