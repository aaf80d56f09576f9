package storage

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// FileLedger keeps the notified-code set in memory, backed by a plain text
// file with one uppercase code per line. The file is read in full at startup
// and appended to on every new code; nothing ever removes or compacts it.
//
// The file is not safe for concurrent writers: running two bot instances
// against the same ledger is unsupported.
type FileLedger struct {
	path  string
	codes map[string]struct{}
}

// Ensure FileLedger implements Ledger
var _ Ledger = (*FileLedger)(nil)

// OpenFileLedger loads the ledger file at path. A missing file yields an
// empty ledger, but the file must be creatable; a file that exists and
// cannot be read is an error, because silently re-notifying every code is
// worse than failing fast.
func OpenFileLedger(path string) (*FileLedger, error) {
	ledger := &FileLedger{
		path:  path,
		codes: make(map[string]struct{}),
	}

	file, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read ledger file %s: %w", path, err)
		}
		// Prove the file is creatable now rather than on the first append.
		created, createErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if createErr != nil {
			return nil, fmt.Errorf("cannot create ledger file %s: %w", path, createErr)
		}
		created.Close()
		logrus.Infof("Ledger file %s not found, starting with an empty ledger", path)
		return ledger, nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		code := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if code == "" {
			continue
		}
		ledger.codes[code] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger file %s: %w", path, err)
	}

	logrus.Infof("Loaded %d previously notified codes from %s", len(ledger.codes), path)
	return ledger, nil
}

// Contains reports whether the code is already in the ledger.
func (l *FileLedger) Contains(code string) bool {
	_, ok := l.codes[strings.ToUpper(code)]
	return ok
}

// Add records the code in memory and appends it to the backing file. The
// in-memory set is updated even when the append fails, so the running
// process will not re-notify; the lost persistence is surfaced to the
// caller.
func (l *FileLedger) Add(code string) error {
	code = strings.ToUpper(code)
	if _, ok := l.codes[code]; ok {
		return nil
	}
	l.codes[code] = struct{}{}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open ledger file %s for append: %w", l.path, err)
	}
	defer file.Close()

	if _, err := file.WriteString(code + "\n"); err != nil {
		return fmt.Errorf("failed to append code %s to ledger file %s: %w", code, l.path, err)
	}

	logrus.Infof("Saved notified code: %s", code)
	return nil
}

// Codes returns a sorted snapshot of the ledger contents.
func (l *FileLedger) Codes() []string {
	codes := make([]string, 0, len(l.codes))
	for code := range l.codes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Len returns the number of codes in the ledger.
func (l *FileLedger) Len() int {
	return len(l.codes)
}

// Export renders the ledger in its file format, one code per line.
func (l *FileLedger) Export() []byte {
	codes := l.Codes()
	if len(codes) == 0 {
		return nil
	}
	return []byte(strings.Join(codes, "\n") + "\n")
}
