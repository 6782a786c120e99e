package services

import (
	"strings"

	"envis/internal/models"
)

// keyedLine is one export or alias inside the managed block, keyed by name.
type keyedLine struct {
	Key   string
	Value string
}

/**
 * blockContent is the parsed interior of a managed block
 * @property {[]string} paths - Managed PATH entries, front = most recently added
 * @property {[]keyedLine} exports - Keyed by name, insertion order preserved
 * @property {string} echo - Greeting message, empty when absent
 * @description
 * - The envis executable directory is not part of paths; the writer
 *   re-emits it as the permanent first line of every serialised block
 */
type blockContent struct {
	paths   []string
	exports []keyedLine
	aliases []keyedLine
	echo    string
}

func (b *blockContent) clear() {
	b.paths = nil
	b.exports = nil
	b.aliases = nil
	b.echo = ""
}

// addPath prepends the entry. An entry that is already present keeps its
// position: add never moves existing entries.
func (b *blockContent) addPath(p string) {
	for _, e := range b.paths {
		if e == p {
			return
		}
	}
	b.paths = append([]string{p}, b.paths...)
}

func (b *blockContent) deletePath(p string) {
	out := b.paths[:0]
	for _, e := range b.paths {
		if e != p {
			out = append(out, e)
		}
	}
	b.paths = out
}

func setKeyed(list []keyedLine, key, value string) []keyedLine {
	for i := range list {
		if list[i].Key == key {
			list[i].Value = value
			return list
		}
	}
	return append(list, keyedLine{Key: key, Value: value})
}

func deleteKeyed(list []keyedLine, key string) []keyedLine {
	out := list[:0]
	for _, kl := range list {
		if kl.Key != key {
			out = append(out, kl)
		}
	}
	return out
}

func (b *blockContent) setExport(k, v string) { b.exports = setKeyed(b.exports, k, v) }
func (b *blockContent) deleteExport(k string) { b.exports = deleteKeyed(b.exports, k) }
func (b *blockContent) setAlias(k, v string) { b.aliases = setKeyed(b.aliases, k, v) }
func (b *blockContent) deleteAlias(k string) { b.aliases = deleteKeyed(b.aliases, k) }
func (b *blockContent) setEchoLine(msg string) { b.echo = msg }
func (b *blockContent) removeEchoLine() { b.echo = "" }

/**
 * Locate the managed block in a file's lines
 * @returns {int, int, bool, error} begin index, end index, found, error
 * @description
 * - Returns ErrCorruptedState when the marker counts are not exactly
 *   paired (each must appear once, begin before end)
 */
func findBlock(lines []string, syntax ShellSyntax) (int, int, bool, error) {
	begin := syntax.CommentPrefix() + blockBeginText
	end := syntax.CommentPrefix() + blockEndText
	beginIdx, endIdx := -1, -1
	beginCount, endCount := 0, 0
	for i, line := range lines {
		switch strings.TrimSpace(line) {
		case begin:
			beginCount++
			if beginIdx < 0 {
				beginIdx = i
			}
		case end:
			endCount++
			if endIdx < 0 {
				endIdx = i
			}
		}
	}
	if beginCount == 0 && endCount == 0 {
		return 0, 0, false, nil
	}
	if beginCount != 1 || endCount != 1 || endIdx < beginIdx {
		return 0, 0, false, models.ErrCorruptedState
	}
	return beginIdx, endIdx, true, nil
}

/**
 * Parse the interior lines of a managed block
 * @param {string} exeDir - The permanent self-path entry, stripped from parsed PATH entries
 * @description
 * - PATH entries from every PATH line are merged and de-duplicated on read
 * - Exports and aliases keep their textual order; the warning line and
 *   blank lines are ignored
 */
func parseBlockInterior(lines []string, syntax ShellSyntax, exeDir string) *blockContent {
	content := &blockContent{}
	warning := syntax.CommentPrefix() + blockWarningText
	seen := make(map[string]bool)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == warning {
			continue
		}
		if entries, ok := syntax.ParsePathEntries(line); ok {
			for _, e := range entries {
				if e == exeDir || seen[e] {
					continue
				}
				seen[e] = true
				content.paths = append(content.paths, e)
			}
			continue
		}
		if k, v, ok := syntax.ExportKey(line); ok {
			content.exports = setKeyed(content.exports, k, v)
			continue
		}
		if k, v, ok := syntax.AliasKey(line); ok {
			content.aliases = setKeyed(content.aliases, k, v)
			continue
		}
		if msg, ok := syntax.EchoMessage(line); ok {
			content.echo = msg
		}
	}
	return content
}

/**
 * Serialise a managed block, markers included
 * @description
 * - The first line inside the block (after the warning) always prepends
 *   the envis executable directory to PATH so the tool stays reachable
 *   from any spawned shell
 */
func serializeBlock(content *blockContent, syntax ShellSyntax, exeDir string) []string {
	lines := []string{
		syntax.CommentPrefix() + blockBeginText,
		syntax.CommentPrefix() + blockWarningText,
	}
	if exeDir != "" {
		lines = append(lines, syntax.PathLine([]string{exeDir}))
	}
	if len(content.paths) > 0 {
		lines = append(lines, syntax.PathLine(content.paths))
	}
	for _, kl := range content.exports {
		lines = append(lines, syntax.Export(kl.Key, kl.Value))
	}
	for _, kl := range content.aliases {
		lines = append(lines, syntax.Alias(kl.Key, kl.Value))
	}
	if content.echo != "" {
		lines = append(lines, syntax.Echo(content.echo))
	}
	lines = append(lines, syntax.CommentPrefix()+blockEndText)
	return lines
}
