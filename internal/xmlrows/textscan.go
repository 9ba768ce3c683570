package xmlrows

import (
	"errors"
	"html"
	"regexp"
	"strings"
)

// ErrNothingRecovered is returned by TextScanner when no tag pair was found.
var ErrNothingRecovered = errors.New("no rows recoverable from text")

var (
	prologRe  = regexp.MustCompile(`(?is)<\?xml.*?\?>|<!DOCTYPE[^>]*>|<!--.*?-->`)
	cdataRe   = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	openTagRe = regexp.MustCompile(`<([A-Za-z_][\w.:\-]*)((?:\s[^>]*?)?)(/?)>`)
	itemTagRe = regexp.MustCompile(`(?i)<(liitem_[\w.:\-]*)((?:\s[^>]*?)?)(/?)>`)
	anyTagRe  = regexp.MustCompile(`<[^>]*>`)
)

// TextScanner recovers rows from documents a strict parser rejects, such
// as concatenated exports or stray ampersands, by scanning tag pairs.
type TextScanner struct{}

// Name implements Strategy.
func (TextScanner) Name() Kind { return KindTextScan }

// Extract implements Strategy.
func (s TextScanner) Extract(text, itemHint string) (Result, error) {
	text = normalize(text)

	blocks := itemBlocks(text, itemHint)
	if len(blocks) == 0 && itemHint != "" {
		blocks = itemBlocks(text, "")
	}

	var rows []Row
	if len(blocks) > 0 {
		rows = make([]Row, 0, len(blocks))
		for _, block := range blocks {
			rows = append(rows, mirrorColumns(childPairs(block)))
		}
	} else if row := leafPairs(text); len(row) > 0 {
		rows = []Row{mirrorColumns(row)}
	}

	if len(rows) == 0 {
		return Result{Kind: KindTextScan}, ErrNothingRecovered
	}
	return Result{Kind: KindTextScan, Rows: rows}, nil
}

func normalize(text string) string {
	text = prologRe.ReplaceAllString(text, "")
	return cdataRe.ReplaceAllStringFunc(text, func(m string) string {
		inner := cdataRe.FindStringSubmatch(m)[1]
		return html.EscapeString(inner)
	})
}

// itemBlocks returns the inner text of each item element. An item with no
// closing tag runs up to the next item or the end of the text.
func itemBlocks(text, hint string) []string {
	lower := asciiLower(text)
	locs := itemTagRe.FindAllStringSubmatchIndex(text, -1)

	var blocks []string
	pos := 0
	for i, loc := range locs {
		if loc[0] < pos {
			continue
		}
		name := text[loc[2]:loc[3]]
		if hint != "" && !strings.EqualFold(name, hint) {
			continue
		}
		if loc[6] != loc[7] { // self-closing
			blocks = append(blocks, "")
			pos = loc[1]
			continue
		}

		start := loc[1]
		end, after := findClose(lower, asciiLower(name), start)
		if end < 0 {
			end = len(text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			after = end
		}
		blocks = append(blocks, text[start:end])
		pos = after
	}
	return blocks
}

// findClose locates "</name>" (optionally "</name >") at or after from.
// It returns the index of the closing tag and the index just past it, or
// -1 when absent. Callers fold both arguments with asciiLower for
// case-insensitive matching.
func findClose(text, name string, from int) (int, int) {
	needle := "</" + name
	for from <= len(text) {
		i := strings.Index(text[from:], needle)
		if i < 0 {
			return -1, -1
		}
		i += from
		j := i + len(needle)
		for j < len(text) && isSpace(text[j]) {
			j++
		}
		if j < len(text) && text[j] == '>' {
			return i, j + 1
		}
		from = i + len(needle)
	}
	return -1, -1
}

// asciiLower folds A-Z only, byte by byte, so offsets into the result
// are valid in the input.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// childPairs reads the immediate children of an item block. Nested markup
// inside a child is stripped to its text.
func childPairs(block string) Row {
	row := make(Row)
	pos := 0
	for pos < len(block) {
		loc := openTagRe.FindStringSubmatchIndex(block[pos:])
		if loc == nil {
			break
		}
		name := block[pos+loc[2] : pos+loc[3]]
		openEnd := pos + loc[1]

		if loc[6] != loc[7] {
			row[name] = ""
			pos = openEnd
			continue
		}

		end, after := findClose(block, name, openEnd)
		if end < 0 {
			pos = openEnd
			continue
		}
		row[name] = tagValue(block[openEnd:end])
		pos = after
	}
	return row
}

// leafPairs reads every element that directly holds text, at any depth.
func leafPairs(text string) Row {
	row := make(Row)
	pos := 0
	for pos < len(text) {
		loc := openTagRe.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		name := text[pos+loc[2] : pos+loc[3]]
		openEnd := pos + loc[1]

		if loc[6] != loc[7] {
			row[name] = ""
			pos = openEnd
			continue
		}

		end, after := findClose(text, name, openEnd)
		if end < 0 || strings.Contains(text[openEnd:end], "<") {
			pos = openEnd
			continue
		}
		row[name] = tagValue(text[openEnd:end])
		pos = after
	}
	return row
}

func tagValue(inner string) string {
	return CleanText(html.UnescapeString(anyTagRe.ReplaceAllString(inner, "")))
}

// mirrorColumns adds "X" for every "LiColonne_X" key unless X is set.
func mirrorColumns(row Row) Row {
	aliases := make(map[string]string)
	for k, v := range row {
		alias, ok := strings.CutPrefix(k, ColumnPrefix)
		if !ok || alias == "" {
			continue
		}
		if _, exists := row[alias]; !exists {
			aliases[alias] = v
		}
	}
	for k, v := range aliases {
		row[k] = v
	}
	return row
}
