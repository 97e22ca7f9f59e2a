package duplicity

import (
	"context"
	"log/slog"
)

// Flags for optional duplicity behaviors, registered in the default OptionSet.
const (
	// OptNoEncryption disables GPG encryption of the backup volumes. It is
	// enabled by default and forced off as soon as a passphrase is set.
	OptNoEncryption = "--no-encryption"

	// OptAsyncUpload uploads volumes while the next one is being prepared.
	OptAsyncUpload = "--asynchronous-upload"
)

// Option is an optional command flag gated on a minimum duplicity version.
type Option struct {
	Flag    string
	Min     Version
	Enabled bool
}

// OptionSet is a registry of optional flags. Options resolve in their
// declared order so that built commands are reproducible byte for byte.
type OptionSet struct {
	order  []string
	opts   map[string]*Option
	logger *slog.Logger
}

// NewOptionSet creates an OptionSet pre-registered with the known duplicity
// options.
func NewOptionSet(logger *slog.Logger) *OptionSet {
	if logger == nil {
		logger = slog.Default()
	}

	s := &OptionSet{
		opts:   make(map[string]*Option),
		logger: logger,
	}

	s.Register(Option{Flag: OptNoEncryption, Min: Version{0, 1, 0}, Enabled: true})
	s.Register(Option{Flag: OptAsyncUpload, Min: Version{0, 6, 23}, Enabled: false})

	return s
}

// Register adds an option to the set. Registration order is resolution order.
func (s *OptionSet) Register(opt Option) {
	if _, ok := s.opts[opt.Flag]; !ok {
		s.order = append(s.order, opt.Flag)
	}
	o := opt
	s.opts[opt.Flag] = &o
}

// SetEnabled toggles an option's inclusion. Unknown flags are ignored.
func (s *OptionSet) SetEnabled(flag string, enabled bool) {
	if opt, ok := s.opts[flag]; ok {
		opt.Enabled = enabled
	}
}

// Enabled reports whether the named option is currently enabled.
func (s *OptionSet) Enabled(flag string) bool {
	opt, ok := s.opts[flag]
	return ok && opt.Enabled
}

// Resolve returns the flag tokens of all enabled options supported by the
// installed version, in declared order. An enabled option the local duplicity
// is too old for is dropped with a warning, not an error: forward
// compatibility is expected.
func (s *OptionSet) Resolve(ctx context.Context, gate *Gate) []string {
	flags := make([]string, 0, len(s.order))

	for _, name := range s.order {
		opt := s.opts[name]
		if !opt.Enabled {
			continue
		}
		if !gate.Supports(ctx, opt.Min) {
			s.logger.Warn("option not available locally",
				"flag", opt.Flag,
				"requires", opt.Min.String(),
			)
			continue
		}
		flags = append(flags, opt.Flag)
	}

	return flags
}
