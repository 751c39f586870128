package commodity

import (
	"sort"
	"strings"

	"agrirank/internal/config"
	"agrirank/pkg/contracts/domain"
)

// Vocabulary maps source-language market names to canonical display names.
// It is immutable after construction.
type Vocabulary struct {
	entries map[string]string
}

// NewVocabulary copies entries, trimming whitespace from both sides of every pair.
func NewVocabulary(entries map[string]string) *Vocabulary {
	v := &Vocabulary{entries: make(map[string]string, len(entries))}
	for name, canonical := range entries {
		key := strings.TrimSpace(name)
		if key == "" {
			continue
		}
		canonical = strings.TrimSpace(canonical)
		if canonical == "" {
			canonical = key
		}
		v.entries[key] = canonical
	}
	return v
}

// IsMember reports whether name belongs to the vocabulary.
func (v *Vocabulary) IsMember(name string) bool {
	_, ok := v.entries[strings.TrimSpace(name)]
	return ok
}

// CanonicalName returns the display name for name, or the trimmed name
// itself when it is not in the vocabulary.
func (v *Vocabulary) CanonicalName(name string) string {
	key := strings.TrimSpace(name)
	if canonical, ok := v.entries[key]; ok {
		return canonical
	}
	return key
}

// Len returns the number of entries.
func (v *Vocabulary) Len() int {
	return len(v.entries)
}

// Names returns the source names in sorted order.
func (v *Vocabulary) Names() []string {
	names := make([]string, 0, len(v.entries))
	for name := range v.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CodeRangeFilter admits classification codes inside any configured range.
type CodeRangeFilter struct {
	ranges []config.CodeRange
}

// NewCodeRangeFilter returns a filter over ranges.
func NewCodeRangeFilter(ranges []config.CodeRange) CodeRangeFilter {
	return CodeRangeFilter{ranges: append([]config.CodeRange(nil), ranges...)}
}

// Contains reports whether code falls inside one of the ranges.
func (f CodeRangeFilter) Contains(code int) bool {
	for _, r := range f.ranges {
		if r.Contains(code) {
			return true
		}
	}
	return false
}

// Filter restricts the working set by code range and vocabulary membership.
// Each part is optional; when both are configured an observation must pass both.
type Filter struct {
	codes *CodeRangeFilter
	vocab *Vocabulary
}

// NewFilter builds a filter. Empty ranges or a nil vocabulary disable that part.
func NewFilter(ranges []config.CodeRange, vocab *Vocabulary) *Filter {
	f := &Filter{vocab: vocab}
	if len(ranges) > 0 {
		codes := NewCodeRangeFilter(ranges)
		f.codes = &codes
	}
	return f
}

// NewFilterFromConfig builds the filter described by cfg.
func NewFilterFromConfig(cfg config.AnalysisConfig) *Filter {
	var vocab *Vocabulary
	if cfg.UseVocabulary {
		vocab = VocabularyFromConfig(cfg)
	}
	return NewFilter(cfg.CodeRanges, vocab)
}

// Admit decides whether obs belongs to the working set. It returns the
// canonical commodity name, or the reason the observation is excluded.
func (f *Filter) Admit(obs domain.RawObservation) (string, domain.ExclusionReason, bool) {
	if f.codes != nil && (!obs.HasCode || !f.codes.Contains(obs.CommodityCode)) {
		return "", domain.ExcludedCodeOutOfRange, false
	}
	if f.vocab != nil && !f.vocab.IsMember(obs.CommodityName) {
		return "", domain.ExcludedNotInVocabulary, false
	}

	canonical := strings.TrimSpace(obs.CommodityName)
	if f.vocab != nil {
		canonical = f.vocab.CanonicalName(obs.CommodityName)
	}
	if canonical == "" {
		return "", domain.ExcludedMissingName, false
	}
	return canonical, "", true
}

// Describe summarizes the active filters for report metadata.
func (f *Filter) Describe() string {
	var parts []string
	if f.codes != nil {
		ranges := make([]string, len(f.codes.ranges))
		for i, r := range f.codes.ranges {
			ranges[i] = r.String()
		}
		parts = append(parts, "codes "+strings.Join(ranges, ","))
	}
	if f.vocab != nil {
		parts = append(parts, "vocabulary")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " + ")
}
