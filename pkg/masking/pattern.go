package masking

import (
	"log/slog"
	"regexp"
	"slices"

	"github.com/swarmruntime/core/pkg/config"
)

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// resolvedPatterns holds the resolved set of maskers and patterns for one
// masking pass.
type resolvedPatterns struct {
	codeMaskerNames []string
	regexPatterns   []*CompiledPattern
}

// compileBuiltinPatterns compiles every regex pattern from the built-in
// catalog. Invalid patterns are logged and skipped rather than failing
// construction.
func (s *Service) compileBuiltinPatterns() {
	for name, pattern := range config.GetBuiltinConfig().MaskingPatterns {
		compiled, err := regexp.Compile(pattern.Pattern)
		if err != nil {
			slog.Error("failed to compile built-in masking pattern, skipping",
				"pattern", name, "error", err)
			continue
		}
		s.patterns[name] = &CompiledPattern{
			Name:        name,
			Regex:       compiled,
			Replacement: pattern.Replacement,
			Description: pattern.Description,
		}
	}
}

// resolveGroup expands a pattern group name into a deduplicated set of
// code maskers and compiled regex patterns.
func (s *Service) resolveGroup(groupName string) *resolvedPatterns {
	seen := make(map[string]bool)
	resolved := &resolvedPatterns{}

	names, ok := s.patternGroups[groupName]
	if !ok {
		return resolved
	}

	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		if slices.Contains(s.codeMaskerNames, name) {
			resolved.codeMaskerNames = append(resolved.codeMaskerNames, name)
			continue
		}
		if cp, ok := s.patterns[name]; ok {
			resolved.regexPatterns = append(resolved.regexPatterns, cp)
		}
	}

	return resolved
}
