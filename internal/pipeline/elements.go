package pipeline

import (
	"fmt"
	"strconv"
)

// ElementKind tags the variant held by an Element.
type ElementKind int

// Element kinds, Phase 1 first.
const (
	KindTheorem ElementKind = iota
	KindProof
	KindSection
	KindFigure
	KindEnumerate
	KindItemize
	KindListing
)

func (k ElementKind) String() string {
	switch k {
	case KindTheorem:
		return "theorem"
	case KindProof:
		return "proof"
	case KindSection:
		return "section"
	case KindFigure:
		return "figure"
	case KindEnumerate:
		return "enumerate"
	case KindItemize:
		return "itemize"
	case KindListing:
		return "listing"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Element is one extracted region of the source text.
// Start and End are a half-open byte range into the text the element was
// extracted from, and Raw is exactly text[Start:End].
type Element struct {
	Kind  ElementKind
	Start int
	End   int
	Raw   string
	HTML  string // generated fragment, filled by the Renderer

	// Inner holds the theorems and proofs found inside a list or figure,
	// with offsets into the same text as Start.
	Inner []Element

	Theorem *TheoremData
	Proof   *ProofData
	Section *SectionData
	Figure  *FigureData
	List    *ListData
	Listing *ListingData
}

// TheoremData holds a theorem-like environment.
type TheoremData struct {
	Env        string // environment name, e.g. "lemma"
	Title      string // optional [title]
	Label      string // first \label in the body, "" if none
	Number     string // resolved number, "?" when labelled but unresolved
	ID         string // element id: anchor, label or <env>-<n>
	Body       string // body with the label removed
	Occurrence int    // 1-based count per environment name
}

// ProofData holds a proof environment (including any nested proofs in Body).
type ProofData struct {
	Title    string
	StableID string
	Body     string
	Nested   bool
}

// SectionData holds a sectioning command.
type SectionData struct {
	Command string
	Level   int
	Title   string
	Label   string
	Number  string
	ID      string
	Starred bool
}

// FigureData holds a figure environment with caption and label removed from Body.
type FigureData struct {
	Caption string
	Label   string
	Number  string
	ID      string
	Body    string
}

// ListData holds an enumerate or itemize environment.
type ListData struct {
	Options   string
	Body      string
	BodyStart int // offset of Body in the extracted text
}

// ListingData holds a verbatim or lstlisting environment.
type ListingData struct {
	Env     string
	Options string
	Code    string
}

// ExtractState is the accumulator threaded through one conversion.
// It replaces package-level counters so conversions are independent.
type ExtractState struct {
	envCounts     map[string]int
	proofOrdinal  int
	figures       int
	usedIDs       map[string]bool
	claimedLabels map[string]bool
}

// NewExtractState returns an empty accumulator.
func NewExtractState() *ExtractState {
	return &ExtractState{
		envCounts:     make(map[string]int),
		usedIDs:       make(map[string]bool),
		claimedLabels: make(map[string]bool),
	}
}

// nextOccurrence bumps and returns the counter for env.
func (s *ExtractState) nextOccurrence(env string) int {
	s.envCounts[env]++
	return s.envCounts[env]
}

// uniqueID returns base, or base-2, base-3, ... if base is already taken.
func (s *ExtractState) uniqueID(base string) string {
	id := base
	for n := 2; s.usedIDs[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	s.usedIDs[id] = true
	return id
}
