package duplicity

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sharkusmanch/duplicity-runner/internal/domain"
)

// Exit codes duplicity verify is known to emit.
const (
	exitNoChanges     = 0
	exitIsChanged     = 1
	exitNoBackupFound = 30
)

// InterpretVerify maps a verify exit code to its outcome. The mapping is
// total: any code outside the known set is CorruptData, the conservative
// default, so an unrecognized failure can never pass for success.
func InterpretVerify(code int) domain.VerifyOutcome {
	switch code {
	case exitNoChanges:
		return domain.NoChanges
	case exitIsChanged:
		return domain.IsChanged
	case exitNoBackupFound:
		return domain.NoBackupFound
	default:
		return domain.CorruptData
	}
}

// CatalogParser turns collection-status output lines into backup entries.
// It is an interface so the free-text parsing strategy can be swapped without
// touching callers.
type CatalogParser interface {
	Parse(lines []string) []domain.BackupEntry
}

// catalogLine matches one backup set row of collection-status output: a Full
// or Incremental token, the backup timestamp, then the column separator. The
// run of at least ten whitespace characters is duplicity's column gap and is
// load-bearing: it is what separates the timestamp field from the trailing
// volume-count column. This grammar holds for the 0.6 and 0.7 series.
var catalogLine = regexp.MustCompile(`^\s*(Full|Incremental)\s+(.+?)\s{10,}`)

// StatusParser is the regex-based CatalogParser for duplicity's free-text
// collection-status format.
type StatusParser struct {
	logger *slog.Logger
}

// NewStatusParser creates a StatusParser.
func NewStatusParser(logger *slog.Logger) *StatusParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusParser{logger: logger}
}

// Parse scans output lines for backup set rows and returns them in listing
// order. Lines that do not match the row grammar, including rows whose
// timestamp cannot be parsed, are skipped.
func (p *StatusParser) Parse(lines []string) []domain.BackupEntry {
	entries := make([]domain.BackupEntry, 0, len(lines))

	for _, line := range lines {
		m := catalogLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		// Timestamps are ctime-style, e.g. "Wed Jan  1 00:00:00 2020".
		ts, err := time.Parse(time.ANSIC, strings.TrimSpace(m[2]))
		if err != nil {
			p.logger.Warn("skipping catalog row with unparseable timestamp",
				"line", strings.TrimSpace(line),
				"error", err,
			)
			continue
		}

		entries = append(entries, domain.BackupEntry{
			Kind: domain.BackupKind(m[1]),
			Time: ts,
		})
	}

	return entries
}

// Ensure StatusParser implements CatalogParser.
var _ CatalogParser = (*StatusParser)(nil)
