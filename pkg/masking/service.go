// Package masking applies pattern-based secret redaction to spend-log
// entries, event payloads, and structured log fields before they leave
// the process (SPEC_FULL.md §4.15).
package masking

import (
	"log/slog"

	"github.com/swarmruntime/core/pkg/config"
)

// Service applies data masking using the built-in pattern catalog and
// any registered code-based maskers. Created once at startup and reused
// across every component that needs to redact text before logging or
// publishing it.
type Service struct {
	patterns        map[string]*CompiledPattern
	patternGroups   map[string][]string
	codeMaskers     map[string]Masker
	codeMaskerNames []string
}

// NewService creates a masking service with every built-in pattern
// compiled eagerly. Invalid patterns are logged and skipped.
func NewService() *Service {
	s := &Service{
		patterns:      make(map[string]*CompiledPattern),
		patternGroups: config.GetBuiltinConfig().PatternGroups,
		codeMaskers:   make(map[string]Masker),
	}
	s.compileBuiltinPatterns()

	slog.Info("masking service initialized",
		"builtin_patterns", len(config.GetBuiltinConfig().MaskingPatterns),
		"compiled_patterns", len(s.patterns))

	return s
}

// Register adds a code-based masker, making it available to any pattern
// group that names it.
func (s *Service) Register(m Masker) {
	s.codeMaskers[m.Name()] = m
	s.codeMaskerNames = append(s.codeMaskerNames, m.Name())
}

// Mask applies groupName's code maskers then regex patterns to content,
// in that order (structural maskers first, general regex sweep second).
// Unknown group names are a no-op: content is returned unchanged.
func (s *Service) Mask(content, groupName string) string {
	if content == "" {
		return content
	}

	resolved := s.resolveGroup(groupName)
	if len(resolved.codeMaskerNames) == 0 && len(resolved.regexPatterns) == 0 {
		return content
	}

	masked := content
	for _, name := range resolved.codeMaskerNames {
		if m, ok := s.codeMaskers[name]; ok && m.AppliesTo(masked) {
			masked = m.Mask(masked)
		}
	}
	for _, pattern := range resolved.regexPatterns {
		masked = pattern.Regex.ReplaceAllString(masked, pattern.Replacement)
	}

	return masked
}

// MaskFields applies Mask to every value in fields, returning a new map.
// Used to redact structured log fields and event payload maps in place
// without string-serializing the whole payload.
func (s *Service) MaskFields(fields map[string]string, groupName string) map[string]string {
	masked := make(map[string]string, len(fields))
	for k, v := range fields {
		masked[k] = s.Mask(v, groupName)
	}
	return masked
}
