package incident

// Priority is the normalized incident priority band.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityModerate
	PriorityLow
	PriorityUnknown
)

// unknownPriorityRank sorts unknown priorities after every known band.
const unknownPriorityRank = 999

// rawPriorities maps the exact source labels to priority bands. Matching is
// deliberately strict: trimming or fuzzy matching would hide upstream drift
// in the ticketing export, and drift must surface as Unknown.
var rawPriorities = map[string]Priority{
	"1 - Critical": PriorityCritical,
	"2 - High":     PriorityHigh,
	"3 - Moderate": PriorityModerate,
	"4 - Low":      PriorityLow,
}

// ParsePriority maps a raw priority label to a Priority. Any label outside
// the known set, including empty strings, yields PriorityUnknown.
func ParsePriority(raw string) Priority {
	if p, ok := rawPriorities[raw]; ok {
		return p
	}
	return PriorityUnknown
}

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "Critical"
	case PriorityHigh:
		return "High"
	case PriorityModerate:
		return "Moderate"
	case PriorityLow:
		return "Low"
	default:
		return "Unknown"
	}
}

// Rank returns the numeric ordering of the band, lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 1
	case PriorityHigh:
		return 2
	case PriorityModerate:
		return 3
	case PriorityLow:
		return 4
	default:
		return unknownPriorityRank
	}
}

// IsKnown reports whether the priority maps to a real band.
func (p Priority) IsKnown() bool {
	return p != PriorityUnknown
}
