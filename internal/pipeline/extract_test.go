package pipeline

import (
	"reflect"
	"strings"
	"testing"
)

func extract(t *testing.T, text string, labels LabelTable) ([]Element, *Reporter) {
	t.Helper()
	rep := NewReporter(nil)
	x := &Extractor{Labels: labels, State: NewExtractState(), Reporter: rep}
	return x.Extract(text), rep
}

func kinds(elems []Element) []ElementKind {
	out := make([]ElementKind, 0, len(elems))
	for _, el := range elems {
		out = append(out, el.Kind)
	}
	return out
}

func TestExtract_RawMatchesRange(t *testing.T) {
	t.Parallel()

	text := `\section{Intro}\label{sec:i}
Some text.
\begin{lemma}[Key]\label{l:k}Body $x$.\end{lemma}
\begin{proof}Easy.\end{proof}
\begin{figure}\includegraphics{a}\caption{C}\end{figure}
\begin{itemize}\item one\end{itemize}
\begin{verbatim}
\begin{theorem}not a theorem\end{theorem}
\end{verbatim}`

	elems, _ := extract(t, text, nil)
	for _, el := range elems {
		if text[el.Start:el.End] != el.Raw {
			t.Errorf("%s: Raw does not match text[%d:%d]", el.Kind, el.Start, el.End)
		}
	}
	want := []ElementKind{KindSection, KindTheorem, KindProof, KindFigure, KindItemize, KindListing}
	if got := kinds(elems); !reflect.DeepEqual(got, want) {
		t.Errorf("kinds = %v, want %v", got, want)
	}
	for i := 1; i < len(elems); i++ {
		if elems[i].Start < elems[i-1].End {
			t.Errorf("elements %d and %d overlap", i-1, i)
		}
	}
}

func TestExtract_Theorem(t *testing.T) {
	t.Parallel()

	labels := LabelTable{"t:1": {Number: "1.2", Anchor: "t:1"}}

	tests := []struct {
		name       string
		input      string
		wantEnv    string
		wantTitle  string
		wantNumber string
		wantID     string
		wantBody   string
	}{
		{
			name:       "resolved label",
			input:      `\begin{theorem}\label{t:1}A statement.\end{theorem}`,
			wantEnv:    "theorem",
			wantNumber: "1.2",
			wantID:     "t:1",
			wantBody:   "A statement.",
		},
		{
			name:       "unresolved label shows placeholder",
			input:      `\begin{lemma}\label{l:gone}Text\end{lemma}`,
			wantEnv:    "lemma",
			wantNumber: "?",
			wantID:     "l:gone",
			wantBody:   "Text",
		},
		{
			name:      "unlabelled with title",
			input:     "\\begin{definition}[Group]\nA set with an operation.\n\\end{definition}",
			wantEnv:   "definition",
			wantTitle: "Group",
			wantID:    "definition-1",
			wantBody:  "A set with an operation.",
		},
		{
			name:       "label inside math is not the theorem label",
			input:      `\begin{corollary}$$x \label{eq:in}$$\label{t:1}\end{corollary}`,
			wantEnv:    "corollary",
			wantNumber: "1.2",
			wantID:     "t:1",
			wantBody:   `$$x \label{eq:in}$$`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			elems, _ := extract(t, tt.input, labels)
			if len(elems) != 1 || elems[0].Kind != KindTheorem {
				t.Fatalf("elements = %v, want one theorem", kinds(elems))
			}
			d := elems[0].Theorem
			if d.Env != tt.wantEnv || d.Title != tt.wantTitle || d.Number != tt.wantNumber || d.ID != tt.wantID || d.Body != tt.wantBody {
				t.Errorf("theorem = %+v", d)
			}
		})
	}
}

func TestExtract_UnlabelledOccurrences(t *testing.T) {
	t.Parallel()

	elems, _ := extract(t, `\begin{lemma}a\end{lemma} \begin{theorem}b\end{theorem} \begin{lemma}c\end{lemma}`, nil)
	var ids []string
	for _, el := range elems {
		ids = append(ids, el.Theorem.ID)
	}
	want := []string{"lemma-1", "theorem-1", "lemma-2"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestExtract_NestedProofDepth(t *testing.T) {
	t.Parallel()

	text := `\begin{proof}Outer \begin{proof}Inner \begin{proof}Deep\end{proof}\end{proof} done.\end{proof} after`
	elems, rep := extract(t, text, nil)
	if len(elems) != 1 || elems[0].Kind != KindProof {
		t.Fatalf("elements = %v, want a single proof", kinds(elems))
	}
	el := elems[0]
	if !strings.HasSuffix(el.Raw, `done.\end{proof}`) {
		t.Errorf("proof ends early: %q", el.Raw)
	}
	if strings.Count(el.Proof.Body, `\begin{proof}`) != 2 {
		t.Errorf("nested proofs should stay in the body: %q", el.Proof.Body)
	}
	if len(rep.Diagnostics()) != 0 {
		t.Errorf("diagnostics = %v", rep.Diagnostics())
	}
}

func TestExtract_Unterminated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantKinds []ElementKind
	}{
		{
			name:  "theorem",
			input: `\begin{theorem}never closed`,
		},
		{
			name:      "outer proof",
			input:     `\begin{proof} a \begin{proof} b \end{proof}`,
			wantKinds: []ElementKind{KindProof},
		},
		{
			name:  "list",
			input: `\begin{itemize}\item a`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			elems, rep := extract(t, tt.input, nil)
			if got := kinds(elems); len(got) != len(tt.wantKinds) || (len(got) > 0 && !reflect.DeepEqual(got, tt.wantKinds)) {
				t.Errorf("kinds = %v, want %v", got, tt.wantKinds)
			}
			if rep.Count(DiagUnterminated) != 1 {
				t.Errorf("unterminated diagnostics = %d, want 1", rep.Count(DiagUnterminated))
			}
		})
	}
}

func TestExtract_MaskingHidesPhaseOneContent(t *testing.T) {
	t.Parallel()

	text := "\\begin{remark}\\section{Inside}\\begin{itemize}\\item x\\end{itemize}\\end{remark}\n\\section{Outside}"
	elems, _ := extract(t, text, nil)

	want := []ElementKind{KindTheorem, KindSection}
	if got := kinds(elems); !reflect.DeepEqual(got, want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	if elems[1].Section.Title != "Outside" {
		t.Errorf("section title = %q, want Outside", elems[1].Section.Title)
	}
}

func TestExtract_TheoremInsideListStaysInList(t *testing.T) {
	t.Parallel()

	text := `\begin{itemize}\item \begin{claim}c\end{claim}\end{itemize}`
	elems, _ := extract(t, text, nil)
	if got := kinds(elems); !reflect.DeepEqual(got, []ElementKind{KindItemize}) {
		t.Fatalf("kinds = %v, want [itemize]", got)
	}
	inner := elems[0].Inner
	if len(inner) != 1 || inner[0].Kind != KindTheorem {
		t.Fatalf("list inner = %v, want one theorem", kinds(inner))
	}
	if text[inner[0].Start:inner[0].End] != inner[0].Raw {
		t.Error("inner element offsets do not point into the text")
	}
	if inner[0].Theorem.ID != "claim-1" {
		t.Errorf("inner id = %q, want claim-1", inner[0].Theorem.ID)
	}
}

func TestExtract_WithinReusesInnerElements(t *testing.T) {
	t.Parallel()

	rep := NewReporter(nil)
	x := &Extractor{State: NewExtractState(), Reporter: rep}
	text := `\begin{enumerate}\item \begin{example}A\end{example}\item \begin{proof}B\end{proof}\end{enumerate}`
	list := x.Extract(text)[0]

	_, items := splitItems(list.List.Body)
	var got []string
	for _, it := range items {
		inner := itemElements(list.Inner, list.List.BodyStart+it.start, len(it.text))
		for _, el := range x.ExtractWithin(it.text, inner) {
			switch el.Kind {
			case KindTheorem:
				got = append(got, el.Theorem.ID)
			case KindProof:
				got = append(got, el.Proof.StableID)
			}
		}
	}

	if want := []string{"example-1", "proof-num-1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
	if x.State.envCounts["example"] != 1 || x.State.proofOrdinal != 1 {
		t.Errorf("state advanced twice: examples=%d proofs=%d", x.State.envCounts["example"], x.State.proofOrdinal)
	}
}

func TestRelocate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		elems []Element
		want  [][2]int
	}{
		{
			name:  "offsets still valid",
			text:  "ab[x]cd",
			elems: []Element{{Start: 2, End: 5, Raw: "[x]"}},
			want:  [][2]int{{2, 5}},
		},
		{
			name:  "shifted text",
			text:  "[x] and [x]",
			elems: []Element{{Start: 10, End: 13, Raw: "[x]"}, {Start: 20, End: 23, Raw: "[x]"}},
			want:  [][2]int{{0, 3}, {8, 11}},
		},
		{
			name:  "missing element dropped",
			text:  "[x]",
			elems: []Element{{Start: 0, End: 3, Raw: "[y]"}, {Start: 0, End: 3, Raw: "[x]"}},
			want:  [][2]int{{0, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got [][2]int
			for _, el := range relocate(tt.text, tt.elems) {
				got = append(got, [2]int{el.Start, el.End})
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("relocate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtract_NestedListsShareDepth(t *testing.T) {
	t.Parallel()

	text := `\begin{enumerate}\item a \begin{itemize}\item b\end{itemize}\item c\end{enumerate}`
	elems, _ := extract(t, text, nil)
	if len(elems) != 1 || elems[0].Kind != KindEnumerate || elems[0].Raw != text {
		t.Fatalf("want one enumerate spanning the whole text, got %v", kinds(elems))
	}
}

func TestExtract_Sections(t *testing.T) {
	t.Parallel()

	labels := LabelTable{"sec:intro": {Number: "1", Anchor: "section.1"}}

	tests := []struct {
		name    string
		input   string
		want    SectionData
		wantRaw string
	}{
		{
			name:    "label absorbed",
			input:   "\\section{Intro}\n  \\label{sec:intro}\nText",
			want:    SectionData{Command: "section", Level: 2, Title: "Intro", Label: "sec:intro", Number: "1", ID: "section.1"},
			wantRaw: "\\section{Intro}\n  \\label{sec:intro}",
		},
		{
			name:    "starred without label",
			input:   `\subsection*{Further Notes}`,
			want:    SectionData{Command: "subsection", Level: 3, Title: "Further Notes", ID: "further-notes", Starred: true},
			wantRaw: `\subsection*{Further Notes}`,
		},
		{
			name:    "short title ignored",
			input:   `\chapter[Short]{A {long} title}`,
			want:    SectionData{Command: "chapter", Level: 1, Title: "A {long} title", ID: "a-long-title"},
			wantRaw: `\chapter[Short]{A {long} title}`,
		},
		{
			name:    "label after text is not absorbed",
			input:   "\\paragraph{P} text \\label{sec:intro}",
			want:    SectionData{Command: "paragraph", Level: 5, Title: "P", ID: "p"},
			wantRaw: `\paragraph{P}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			elems, _ := extract(t, tt.input, labels)
			if len(elems) != 1 || elems[0].Kind != KindSection {
				t.Fatalf("elements = %v, want one section", kinds(elems))
			}
			if *elems[0].Section != tt.want {
				t.Errorf("section = %+v, want %+v", *elems[0].Section, tt.want)
			}
			if elems[0].Raw != tt.wantRaw {
				t.Errorf("raw = %q, want %q", elems[0].Raw, tt.wantRaw)
			}
		})
	}
}

func TestExtract_Figure(t *testing.T) {
	t.Parallel()

	labels := LabelTable{"fig:p": {Number: "2", Anchor: "figure.2"}}

	tests := []struct {
		name  string
		input string
		want  FigureData
	}{
		{
			name:  "caption and label",
			input: `\begin{figure}[h]\centering\includegraphics{plot}\caption{A plot}\label{fig:p}\end{figure}`,
			want:  FigureData{Caption: "A plot", Label: "fig:p", Number: "2", ID: "figure.2", Body: `\centering\includegraphics{plot}`},
		},
		{
			name:  "label inside caption",
			input: `\begin{figure}\includegraphics{plot}\caption{A plot\label{fig:p}}\end{figure}`,
			want:  FigureData{Caption: "A plot", Label: "fig:p", Number: "2", ID: "figure.2", Body: `\includegraphics{plot}`},
		},
		{
			name:  "unlabelled",
			input: `\begin{figure*}\includegraphics{a}\end{figure*}`,
			want:  FigureData{ID: "figure-1", Body: `\includegraphics{a}`},
		},
		{
			name:  "minipage caption stays in body",
			input: `\begin{figure}\begin{minipage}{.5\textwidth}\caption{Left}\end{minipage}\caption{Both}\end{figure}`,
			want:  FigureData{Caption: "Both", ID: "figure-1", Body: `\begin{minipage}{.5\textwidth}\caption{Left}\end{minipage}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			elems, _ := extract(t, tt.input, labels)
			if len(elems) != 1 || elems[0].Kind != KindFigure {
				t.Fatalf("elements = %v, want one figure", kinds(elems))
			}
			if *elems[0].Figure != tt.want {
				t.Errorf("figure = %+v, want %+v", *elems[0].Figure, tt.want)
			}
		})
	}
}

func TestExtract_Listing(t *testing.T) {
	t.Parallel()

	text := "\\begin{lstlisting}[language=Go]\nfmt.Println(\"hi\")\n\\section{not a section}\n\\end{lstlisting}"
	elems, _ := extract(t, text, nil)
	if len(elems) != 1 || elems[0].Kind != KindListing {
		t.Fatalf("elements = %v, want one listing", kinds(elems))
	}
	want := ListingData{Env: "lstlisting", Options: "language=Go", Code: "fmt.Println(\"hi\")\n\\section{not a section}"}
	if *elems[0].Listing != want {
		t.Errorf("listing = %+v, want %+v", *elems[0].Listing, want)
	}
}
