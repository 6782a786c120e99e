package services

import (
	"fmt"
	"strings"
)

// Managed block marker texts. The comment prefix varies per shell
// (# for sh-family and PowerShell, REM for cmd), the text does not.
const (
	blockBeginText   = "BEGIN Envis Environment Block"
	blockWarningText = "WARNING: This block is automatically managed by Envis. Do not edit manually!"
	blockEndText     = "END Envis Environment Block"
)

/**
 * ShellSyntax renders and parses the line-oriented grammar of one shell
 * @description
 * - The block interior is the same structured content for every shell;
 *   only the serialisation differs (export vs $env: vs set, alias vs
 *   doskey vs function)
 */
type ShellSyntax interface {
	Name() string
	CommentPrefix() string
	PathSeparator() string
	// PathLine serialises the PATH entries with a trailing backreference
	// to the platform PATH variable.
	PathLine(entries []string) string
	// ParsePathEntries reports the entries of a PATH line, with
	// platform-variable backreferences stripped. ok is false when the
	// line is not a PATH assignment.
	ParsePathEntries(line string) (entries []string, ok bool)
	Export(key, value string) string
	ExportPrefix(key string) string
	// ExportKey extracts the key of an export line, ok=false otherwise.
	ExportKey(line string) (key, value string, ok bool)
	Alias(key, value string) string
	AliasPrefix(key string) string
	AliasKey(line string) (key, value string, ok bool)
	Echo(message string) string
	EchoMessage(line string) (string, bool)
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// splitPathRHS strips the given backreference spellings from a PATH
// right-hand side and splits on the separator.
func splitPathRHS(rhs, sep string, backrefs []string) []string {
	rhs = trimQuotes(rhs)
	for _, ref := range backrefs {
		rhs = strings.ReplaceAll(rhs, ref, "")
	}
	var entries []string
	for _, part := range strings.Split(rhs, sep) {
		part = trimQuotes(strings.TrimSpace(part))
		if part != "" {
			entries = append(entries, part)
		}
	}
	return entries
}

// ---------------------------------------------------------------- bash/zsh

type bashSyntax struct{}

func (bashSyntax) Name() string          { return "bash" }
func (bashSyntax) CommentPrefix() string { return "# " }
func (bashSyntax) PathSeparator() string { return ":" }

func (s bashSyntax) PathLine(entries []string) string {
	return fmt.Sprintf(`export PATH="%s:$PATH"`, strings.Join(entries, ":"))
}

func (s bashSyntax) ParsePathEntries(line string) ([]string, bool) {
	trimmed := strings.TrimSpace(line)
	const prefix = "export PATH="
	if !strings.HasPrefix(trimmed, prefix) {
		return nil, false
	}
	rhs := trimmed[len(prefix):]
	return splitPathRHS(rhs, ":", []string{"${PATH}", "$PATH"}), true
}

func (bashSyntax) Export(key, value string) string {
	return fmt.Sprintf(`export %s="%s"`, key, value)
}

func (bashSyntax) ExportPrefix(key string) string {
	return fmt.Sprintf("export %s=", key)
}

func (s bashSyntax) ExportKey(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "export ") {
		return "", "", false
	}
	rest := trimmed[len("export "):]
	idx := strings.Index(rest, "=")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(rest[:idx])
	if key == "PATH" {
		return "", "", false
	}
	return key, trimQuotes(rest[idx+1:]), true
}

func (bashSyntax) Alias(key, value string) string {
	return fmt.Sprintf("alias %s='%s'", key, value)
}

func (bashSyntax) AliasPrefix(key string) string {
	return fmt.Sprintf("alias %s=", key)
}

func (s bashSyntax) AliasKey(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "alias ") {
		return "", "", false
	}
	rest := trimmed[len("alias "):]
	idx := strings.Index(rest, "=")
	if idx <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(rest[:idx]), trimQuotes(rest[idx+1:]), true
}

func (bashSyntax) Echo(message string) string {
	return fmt.Sprintf(`echo "%s"`, message)
}

func (bashSyntax) EchoMessage(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "echo ") {
		return "", false
	}
	return trimQuotes(trimmed[len("echo "):]), true
}

// -------------------------------------------------------------- powershell

type powershellSyntax struct{}

func (powershellSyntax) Name() string          { return "powershell" }
func (powershellSyntax) CommentPrefix() string { return "# " }
func (powershellSyntax) PathSeparator() string { return ";" }

func (powershellSyntax) PathLine(entries []string) string {
	return fmt.Sprintf(`$env:Path = "%s;" + $env:Path`, strings.Join(entries, ";"))
}

func (powershellSyntax) ParsePathEntries(line string) ([]string, bool) {
	trimmed := strings.TrimSpace(line)
	const prefix = "$env:Path ="
	if !strings.HasPrefix(trimmed, prefix) {
		return nil, false
	}
	rhs := strings.ReplaceAll(trimmed[len(prefix):], "+", "")
	return splitPathRHS(rhs, ";", []string{"$env:Path", "$Env:Path", "%PATH%"}), true
}

func (powershellSyntax) Export(key, value string) string {
	return fmt.Sprintf(`$env:%s = "%s"`, key, value)
}

func (powershellSyntax) ExportPrefix(key string) string {
	return fmt.Sprintf("$env:%s =", key)
}

func (powershellSyntax) ExportKey(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "$env:") {
		return "", "", false
	}
	rest := trimmed[len("$env:"):]
	idx := strings.Index(rest, "=")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(rest[:idx])
	if strings.EqualFold(key, "Path") {
		return "", "", false
	}
	return key, trimQuotes(rest[idx+1:]), true
}

func (powershellSyntax) Alias(key, value string) string {
	return fmt.Sprintf("function %s { %s @args }", key, value)
}

func (powershellSyntax) AliasPrefix(key string) string {
	return fmt.Sprintf("function %s ", key)
}

func (powershellSyntax) AliasKey(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "function ") {
		return "", "", false
	}
	rest := trimmed[len("function "):]
	idx := strings.Index(rest, "{")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(rest[:idx])
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest[idx+1:]), "}"))
	body = strings.TrimSpace(strings.TrimSuffix(body, "@args"))
	return key, body, true
}

func (powershellSyntax) Echo(message string) string {
	return fmt.Sprintf(`Write-Host "%s"`, message)
}

func (powershellSyntax) EchoMessage(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "Write-Host ") {
		return "", false
	}
	return trimQuotes(trimmed[len("Write-Host "):]), true
}

// --------------------------------------------------------------------- cmd

type cmdSyntax struct{}

func (cmdSyntax) Name() string          { return "cmd" }
func (cmdSyntax) CommentPrefix() string { return "REM " }
func (cmdSyntax) PathSeparator() string { return ";" }

func (cmdSyntax) PathLine(entries []string) string {
	return fmt.Sprintf(`set "PATH=%s;%%PATH%%"`, strings.Join(entries, ";"))
}

func (cmdSyntax) ParsePathEntries(line string) ([]string, bool) {
	trimmed := strings.TrimSpace(line)
	var rhs string
	switch {
	case strings.HasPrefix(trimmed, `set "PATH=`):
		rhs = strings.TrimSuffix(trimmed[len(`set "PATH=`):], `"`)
	case strings.HasPrefix(trimmed, "set PATH="):
		rhs = trimmed[len("set PATH="):]
	default:
		return nil, false
	}
	return splitPathRHS(rhs, ";", []string{"%PATH%"}), true
}

func (cmdSyntax) Export(key, value string) string {
	return fmt.Sprintf(`set "%s=%s"`, key, value)
}

func (cmdSyntax) ExportPrefix(key string) string {
	return fmt.Sprintf(`set "%s=`, key)
}

func (cmdSyntax) ExportKey(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "set ") {
		return "", "", false
	}
	rest := strings.TrimSpace(trimmed[len("set "):])
	rest = trimQuotes(rest)
	idx := strings.Index(rest, "=")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(rest[:idx])
	if strings.EqualFold(key, "PATH") {
		return "", "", false
	}
	return key, rest[idx+1:], true
}

func (cmdSyntax) Alias(key, value string) string {
	return fmt.Sprintf("doskey %s=%s $*", key, value)
}

func (cmdSyntax) AliasPrefix(key string) string {
	return fmt.Sprintf("doskey %s=", key)
}

func (cmdSyntax) AliasKey(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "doskey ") {
		return "", "", false
	}
	rest := trimmed[len("doskey "):]
	idx := strings.Index(rest, "=")
	if idx <= 0 {
		return "", "", false
	}
	value := strings.TrimSpace(strings.TrimSuffix(rest[idx+1:], "$*"))
	return strings.TrimSpace(rest[:idx]), value, true
}

func (cmdSyntax) Echo(message string) string {
	return fmt.Sprintf("echo %s", message)
}

func (cmdSyntax) EchoMessage(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "echo ") {
		return "", false
	}
	return strings.TrimSpace(trimmed[len("echo "):]), true
}

// Exported syntax singletons.
var (
	BashSyntax       ShellSyntax = bashSyntax{}
	PowershellSyntax ShellSyntax = powershellSyntax{}
	CmdSyntax        ShellSyntax = cmdSyntax{}
)
