package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	DefaultMaxBytes = 10 * 1024 * 1024 // 10 MB
	DefaultMaxRows  = 10000

	// A fallback column must have a first sample longer than this so that
	// ID and code columns are not mistaken for feedback text.
	minSampleRunes = 10
)

// PriorityColumns are matched case-insensitively, in order, against the header.
var PriorityColumns = []string{"description", "feedback", "summary", "subject", "content", "text", "comment", "message"}

var sourceColumns = map[string]bool{
	"source":     true,
	"category":   true,
	"type":       true,
	"issue type": true,
}

var candidateDelimiters = []rune{',', ';', '\t', '|'}

type Limits struct {
	MaxBytes int64
	MaxRows  int
}

func DefaultLimits() Limits {
	return Limits{MaxBytes: DefaultMaxBytes, MaxRows: DefaultMaxRows}
}

type Record struct {
	Text     string
	Source   string
	Metadata Metadata
}

type Result struct {
	Headers      []string
	Column       string
	Delimiter    rune
	TotalRows    int
	SkippedBlank int
	Records      []Record
}

// Parse decodes a delimited text file and extracts one Record per row with
// non-blank feedback text, in file order.
func Parse(data []byte, limits Limits) (*Result, error) {
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = DefaultMaxBytes
	}
	if limits.MaxRows <= 0 {
		limits.MaxRows = DefaultMaxRows
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > limits.MaxBytes {
		return nil, ErrFileTooLarge
	}
	if !isText(data) {
		return nil, ErrInvalidFormat
	}

	text, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	delim := sniffDelimiter(text)
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	headers := normalizeHeaders(header)

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		if len(rows) >= limits.MaxRows {
			return nil, ErrTooManyRows
		}
		// a single-column export has no real delimiter; the cell is the
		// whole line
		if len(headers) == 1 && len(row) > 1 {
			row = []string{strings.Join(row, string(delim))}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	col := selectColumn(headers, rows)
	if col < 0 {
		return nil, ErrNoFeedbackColumn
	}

	res := &Result{
		Headers:   headers,
		Column:    headers[col],
		Delimiter: delim,
		TotalRows: len(rows),
		Records:   make([]Record, 0, len(rows)),
	}
	for _, row := range rows {
		content := cell(row, col)
		if content == "" {
			res.SkippedBlank++
			continue
		}

		rec := Record{Text: content}
		for i, name := range headers {
			if i == col {
				continue
			}
			v := cell(row, i)
			if v == "" {
				continue
			}
			if sourceColumns[strings.ToLower(name)] {
				rec.Source = v
			}
			rec.Metadata.Set(name, v)
		}
		for i := len(headers); i < len(row); i++ {
			if v := cell(row, i); v != "" {
				rec.Metadata.Set(fmt.Sprintf("column_%d", i+1), v)
			}
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func isText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// decode strips a UTF-8 BOM or converts UTF-16 input (when BOM-marked) to UTF-8.
func decode(data []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(out) {
		return "", errors.New("content is not valid UTF-8")
	}
	return string(out), nil
}

// sniffDelimiter picks the candidate that occurs most often, outside quotes,
// in the first non-blank line. Comma wins ties and single-column files.
func sniffDelimiter(text string) rune {
	line := firstLine(text)
	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if n := countUnquoted(line, d); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func countUnquoted(line string, d rune) int {
	n, quoted := 0, false
	for _, c := range line {
		switch {
		case c == '"':
			quoted = !quoted
		case c == d && !quoted:
			n++
		}
	}
	return n
}

// normalizeHeaders trims names and renames blank or duplicate ones to
// column_N (1-based position).
func normalizeHeaders(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, len(raw))
	for i, name := range raw {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			name = fmt.Sprintf("column_%d", i+1)
			key = name
		}
		seen[key] = true
		out[i] = name
	}
	return out
}

func selectColumn(headers []string, rows [][]string) int {
	for _, want := range PriorityColumns {
		for i, name := range headers {
			if strings.ToLower(name) == want {
				return i
			}
		}
	}

	for i := range headers {
		sample := firstSample(rows, i)
		if sample == "" || isNumeric(sample) {
			continue
		}
		if utf8.RuneCountInString(sample) > minSampleRunes {
			return i
		}
	}
	return -1
}

func firstSample(rows [][]string, col int) string {
	for _, row := range rows {
		if v := cell(row, col); v != "" {
			return v
		}
	}
	return ""
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return err == nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
