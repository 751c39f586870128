package domain

// ExclusionReason explains why the cleaner dropped a raw observation.
type ExclusionReason string

const (
	ExcludedUnparseableRate ExclusionReason = "unparseable_rate"
	ExcludedInvalidQuantity ExclusionReason = "invalid_quantity"
	ExcludedInvalidDate     ExclusionReason = "invalid_date"
	ExcludedCodeOutOfRange  ExclusionReason = "code_out_of_range"
	ExcludedNotInVocabulary ExclusionReason = "not_in_vocabulary"
	ExcludedMissingName     ExclusionReason = "missing_name"
)

// ExclusionReasons lists every reason in the order checks are applied.
var ExclusionReasons = []ExclusionReason{
	ExcludedUnparseableRate,
	ExcludedInvalidQuantity,
	ExcludedCodeOutOfRange,
	ExcludedNotInVocabulary,
	ExcludedMissingName,
	ExcludedInvalidDate,
}
