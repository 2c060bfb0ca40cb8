package logs

import (
	"bufio"
	"os"
)

const (
	scannerInitialBuf = 64 * 1024
	// Assistant turns with large tool results routinely exceed bufio's
	// default line limit.
	scannerMaxLine = 16 * 1024 * 1024
)

// EachLine opens path and calls fn for every line that decodes as a log
// record, in file order. Malformed lines are skipped silently. A missing or
// unreadable file is not an error: fn is simply never called.
func EachLine(path string, fn func(LogLine)) {
	EachLineIndexed(path, func(_ int, line LogLine) { fn(line) })
}

// EachLineIndexed is EachLine with the zero-based physical line index.
// Malformed lines still consume an index; they are just never delivered.
func EachLineIndexed(path string, fn func(index int, line LogLine)) {
	file, err := os.Open(path) // #nosec G304 -- path is locator-validated
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, scannerInitialBuf), scannerMaxLine)

	for index := 0; scanner.Scan(); index++ {
		line, ok := DecodeLine(scanner.Bytes())
		if !ok {
			continue
		}
		fn(index, line)
	}
	// A scanner error mid-file (e.g. an oversized line) truncates the walk;
	// the lines already delivered stand.
}
