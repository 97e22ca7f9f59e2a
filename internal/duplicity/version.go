// Package duplicity assembles duplicity invocations and interprets their
// results. It does not implement backup logic itself: the external duplicity
// binary does the work, this package builds correct argument lists and maps
// exit codes and free-text output back into typed results.
package duplicity

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/sharkusmanch/duplicity-runner/internal/domain"
)

// productToken is the leading token of duplicity's version probe output,
// e.g. "duplicity 0.7.06".
const productToken = "duplicity"

// Version is a comparable duplicity version. Missing components are zero, so
// 0.7 and 0.7.0 compare equal.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses a dotted version string such as "0.7.06".
func ParseVersion(s string) (Version, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ".", 3)
	if len(parts) == 0 || parts[0] == "" {
		return Version{}, fmt.Errorf("empty version string")
	}

	var v Version
	fields := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		*fields[i] = n
	}

	return v, nil
}

// String returns the dotted representation.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 comparing v against o component by component.
func (v Version) Compare(o Version) int {
	pairs := [][2]int{{v.Major, o.Major}, {v.Minor, o.Minor}, {v.Patch, o.Patch}}
	for _, p := range pairs {
		if p[0] < p[1] {
			return -1
		}
		if p[0] > p[1] {
			return 1
		}
	}
	return 0
}

// AtLeast reports whether v >= min.
func (v Version) AtLeast(min Version) bool {
	return v.Compare(min) >= 0
}

// Gate discovers the installed duplicity version and answers feature support
// queries. The version is probed once per Gate and cached; a single tool
// installation is assumed not to change mid-run. The cache is safe for
// concurrent first-initialization.
type Gate struct {
	commander domain.Commander
	logger    *slog.Logger

	mu     sync.Mutex
	cached *Version
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger sets the logger.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates a Gate probing through the given commander.
func NewGate(commander domain.Commander, opts ...GateOption) *Gate {
	g := &Gate{
		commander: commander,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// IsInstalled reports whether duplicity responds to a version probe. Any
// failure to run the probe, or a non-zero exit, means not installed; no error
// is surfaced.
func (g *Gate) IsInstalled(ctx context.Context) bool {
	code, err := g.commander.Run(ctx, []string{"--version"}, nil)
	return err == nil && code == 0
}

// Current returns the installed duplicity version, probing on first use and
// returning the cached value afterwards. Returns ToolNotFoundError when the
// binary is absent or the probe fails.
func (g *Gate) Current(ctx context.Context) (Version, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cached != nil {
		return *g.cached, nil
	}

	code, err := g.commander.Run(ctx, []string{"--version"}, nil)
	if err != nil || code != 0 {
		return Version{}, &domain.ToolNotFoundError{}
	}

	v, err := g.parseProbe(g.commander.Output())
	if err != nil {
		return Version{}, &domain.ToolNotFoundError{}
	}

	g.logger.Debug("discovered duplicity version", "version", v.String())
	g.cached = &v
	return v, nil
}

// Supports reports whether the installed version satisfies min. An unknown
// version (tool absent) means unsupported.
func (g *Gate) Supports(ctx context.Context, min Version) bool {
	v, err := g.Current(ctx)
	if err != nil {
		return false
	}
	return v.AtLeast(min)
}

// parseProbe extracts the version from probe output by stripping the product
// token and surrounding whitespace.
func (g *Gate) parseProbe(lines []string) (Version, error) {
	for _, line := range lines {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		text = strings.TrimSpace(strings.TrimPrefix(text, productToken))
		return ParseVersion(text)
	}
	return Version{}, fmt.Errorf("empty version probe output")
}
