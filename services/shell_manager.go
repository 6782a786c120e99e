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
	"envis/internal/utils"
)

// ShellTarget is one rc file the writer manages, with the syntax used
// inside it. The list is configuration, not compile-time constants: dev
// builds manage bash+zsh only, prod builds add the PowerShell profiles
// on Windows.
type ShellTarget struct {
	Path   string
	Syntax ShellSyntax
}

/**
 * ShellManager owns the Envis-delimited region of every target rc file
 * @description
 * - All mutations run under one in-process mutex: read, transform in
 *   memory, write atomically with backup rotation
 * - A failure on one target file is logged and does not abort the
 *   operation on the others; the first error is still reported
 */
type ShellManager struct {
	mu      sync.Mutex
	targets []ShellTarget
	exeDir  string
}

/**
 * Create shell manager and prepare its target files
 * @param {[]ShellTarget} targets - rc files to manage
 * @param {string} exeDir - Directory of the envis executable, kept on PATH inside every block
 * @description
 * - Missing target files are created
 * - On Windows the cmd autorun file is registered under the user's
 *   Command Processor key, best effort
 */
func NewShellManager(targets []ShellTarget, exeDir string) *ShellManager {
	sm := &ShellManager{targets: targets, exeDir: exeDir}
	for _, t := range targets {
		if _, err := os.Stat(t.Path); os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(t.Path), 0755); err != nil {
				logger.Errorf("Create directory for '%s' failed: %v", t.Path, err)
				continue
			}
			if err := os.WriteFile(t.Path, nil, 0644); err != nil {
				logger.Errorf("Create shell file '%s' failed: %v", t.Path, err)
			}
		}
		if runtime.GOOS == "windows" && t.Syntax == CmdSyntax {
			registerCmdAutorun(t.Path)
		}
	}
	return sm
}

/**
 * Build the OS- and build-mode-dependent default target list
 * @param {bool} prod - Production builds additionally manage the PowerShell 5.x and 7+ profiles on Windows
 */
func DefaultShellTargets(prod bool) []ShellTarget {
	home, _ := os.UserHomeDir()
	if runtime.GOOS != "windows" {
		return []ShellTarget{
			{Path: filepath.Join(home, ".bash_profile"), Syntax: BashSyntax},
			{Path: filepath.Join(home, ".zshrc"), Syntax: BashSyntax},
		}
	}
	docs := filepath.Join(home, "Documents")
	targets := []ShellTarget{
		{Path: filepath.Join(docs, "envis", "envis_autorun.cmd"), Syntax: CmdSyntax},
	}
	if prod {
		targets = append(targets,
			ShellTarget{Path: filepath.Join(docs, "WindowsPowerShell", "Microsoft.PowerShell_profile.ps1"), Syntax: PowershellSyntax},
			ShellTarget{Path: filepath.Join(docs, "PowerShell", "Microsoft.PowerShell_profile.ps1"), Syntax: PowershellSyntax},
		)
	}
	return targets
}

// registerCmdAutorun points the user's Command Processor AutoRun value at
// the managed cmd file. Failure is logged, never fatal.
func registerCmdAutorun(cmdFile string) {
	res, err := utils.RunCommand(context.Background(), "", nil, "reg", "add",
		`HKCU\Software\Microsoft\Command Processor`,
		"/v", "AutoRun", "/t", "REG_SZ", "/d", cmdFile, "/f")
	if err != nil {
		logger.Warnf("Register cmd autorun failed: %v (%s)", err, strings.TrimSpace(res.Stderr))
	}
}

// BlockEdit collects mutations that are applied to every target file in
// one atomic rewrite. Multi-step updates (replace one alias set with
// another) therefore never leave a half-written block behind.
type BlockEdit struct {
	ops []func(*blockContent)
}

func (e *BlockEdit) Clear() { e.ops = append(e.ops, (*blockContent).clear) }
func (e *BlockEdit) AddPath(p string) { e.ops = append(e.ops, func(b *blockContent) { b.addPath(p) }) }
func (e *BlockEdit) DeletePath(p string) { e.ops = append(e.ops, func(b *blockContent) { b.deletePath(p) }) }
func (e *BlockEdit) AddExport(k, v string) { e.ops = append(e.ops, func(b *blockContent) { b.setExport(k, v) }) }
func (e *BlockEdit) DeleteExport(k string) { e.ops = append(e.ops, func(b *blockContent) { b.deleteExport(k) }) }
func (e *BlockEdit) AddAlias(k, v string) { e.ops = append(e.ops, func(b *blockContent) { b.setAlias(k, v) }) }
func (e *BlockEdit) DeleteAlias(k string) { e.ops = append(e.ops, func(b *blockContent) { b.deleteAlias(k) }) }

func (e *BlockEdit) SetEcho(message string) {
	e.ops = append(e.ops, func(b *blockContent) { b.setEchoLine(message) })
}

func (e *BlockEdit) RemoveEcho() {
	e.ops = append(e.ops, func(b *blockContent) { b.removeEchoLine() })
}

/**
 * Apply a batch of block edits to every target file
 * @returns {error} Returns the first per-file error after all files were attempted
 * @description
 * - Per file: read, locate (or append) the managed block, parse the
 *   interior, run the edits, serialise, write atomically with backup
 * - A file whose markers are unpaired is refused with ErrCorruptedState
 *   and left untouched
 */
func (m *ShellManager) Apply(edit func(*BlockEdit)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var be BlockEdit
	edit(&be)

	var firstErr error
	for _, t := range m.targets {
		if err := m.applyToFile(t, &be); err != nil {
			logger.Errorf("Shell file '%s': %v", t.Path, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("'%s': %w", t.Path, err)
			}
		}
	}
	return firstErr
}

func (m *ShellManager) applyToFile(t ShellTarget, be *BlockEdit) error {
	data, err := os.ReadFile(t.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	lines := splitLines(string(data))

	begin, end, found, err := findBlock(lines, t.Syntax)
	if err != nil {
		return err
	}

	var content *blockContent
	var head, tail []string
	if found {
		content = parseBlockInterior(lines[begin+1:end], t.Syntax, m.exeDir)
		head = lines[:begin]
		tail = lines[end+1:]
	} else {
		content = &blockContent{}
		head = lines
	}

	for _, op := range be.ops {
		op(content)
	}

	out := append([]string{}, head...)
	out = append(out, serializeBlock(content, t.Syntax, m.exeDir)...)
	out = append(out, tail...)

	return utils.WriteFileWithBackup(t.Path, []byte(joinLines(out)), 0644)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// The primitive operations below are what the lifecycle strategies call.
// Each is one atomic rewrite per target file.

func (m *ShellManager) ClearBlockContent() error {
	return m.Apply(func(e *BlockEdit) { e.Clear() })
}

func (m *ShellManager) AddExport(key, value string) error {
	return m.Apply(func(e *BlockEdit) { e.AddExport(key, value) })
}

func (m *ShellManager) DeleteExport(key string) error {
	return m.Apply(func(e *BlockEdit) { e.DeleteExport(key) })
}

func (m *ShellManager) AddPath(p string) error {
	return m.Apply(func(e *BlockEdit) { e.AddPath(p) })
}

func (m *ShellManager) DeletePath(p string) error {
	return m.Apply(func(e *BlockEdit) { e.DeletePath(p) })
}

func (m *ShellManager) AddAlias(key, value string) error {
	return m.Apply(func(e *BlockEdit) { e.AddAlias(key, value) })
}

func (m *ShellManager) DeleteAlias(key string) error {
	return m.Apply(func(e *BlockEdit) { e.DeleteAlias(key) })
}

// AddEchoEnvironment manages the single greeting line inside the block.
func (m *ShellManager) AddEchoEnvironment(name, id string) error {
	msg := fmt.Sprintf("Envis: Current environment is %s (%s)", name, id)
	return m.Apply(func(e *BlockEdit) { e.SetEcho(msg) })
}

func (m *ShellManager) RemoveEchoEnvironment() error {
	return m.Apply(func(e *BlockEdit) { e.RemoveEcho() })
}

/**
 * Read the current PATH entries of one target file
 * @description
 * - Entries are de-duplicated on read; the executable directory is not
 *   reported (it is part of the permanent preamble)
 */
func (m *ShellManager) PathEntries(t ShellTarget) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return nil, err
	}
	lines := splitLines(string(data))
	begin, end, found, err := findBlock(lines, t.Syntax)
	if err != nil || !found {
		return nil, err
	}
	content := parseBlockInterior(lines[begin+1:end], t.Syntax, m.exeDir)
	return content.paths, nil
}

// Targets exposes the managed file list (read-only use).
func (m *ShellManager) Targets() []ShellTarget {
	return m.targets
}
