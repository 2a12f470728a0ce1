// Package analyzer extracts function-level metadata from Python sources via tree-sitter.
//
// The analyzer walks the full syntax tree of each source unit and reports every
// def and async def as a flat FunctionRecord, in breadth-first discovery order.
// It is best-effort: unparsable or unreadable inputs yield empty results and
// never abort a directory scan.
package analyzer

// UnknownAnnotation replaces annotations that cannot be rendered as text.
const UnknownAnnotation = "complex"

// ArgumentKind classifies a parameter by how it binds at call sites.
type ArgumentKind string

const (
	ArgPositionalOnly ArgumentKind = "positional_only"
	ArgPositional     ArgumentKind = "positional"
	ArgVarPositional  ArgumentKind = "var_positional" // *args
	ArgKeywordOnly    ArgumentKind = "keyword_only"
	ArgVarKeyword     ArgumentKind = "var_keyword" // **kwargs
)

// Argument is one declared parameter of a function.
type Argument struct {
	Name           string       `json:"name"`
	TypeAnnotation *string      `json:"type_annotation"`
	Kind           ArgumentKind `json:"kind"`
}

// FunctionRecord describes one discovered function, method or async function.
type FunctionRecord struct {
	Name             string     `json:"name"`
	Arguments        []Argument `json:"arguments"`
	ReturnAnnotation *string    `json:"return_annotation"`
	HasDoc           bool       `json:"has_doc"`
	DocText          *string    `json:"doc_text"`

	// StartLine is the 1-based line of the def (or async) keyword.
	StartLine int `json:"start_line"`
	// HeaderEndLine is the 1-based line holding the colon that ends the header.
	HeaderEndLine int `json:"header_end_line"`
	// BodyLine is the 1-based line where the first body statement starts.
	BodyLine int `json:"body_line"`
	// DocEndLine is the last line of the docstring statement, which starts
	// at BodyLine. Zero without a docstring.
	DocEndLine int `json:"doc_end_line,omitempty"`
	// Indent is the byte column of the def (or async) keyword.
	Indent int `json:"indent"`
	// BodyIndent is the leading whitespace of the first body statement's
	// line. Empty when the body shares the header line.
	BodyIndent string `json:"body_indent,omitempty"`

	IsAsync   bool `json:"is_async"`
	Decorated bool `json:"decorated"`
	// EnclosingName is the nearest enclosing def or class, empty at module level.
	EnclosingName string `json:"enclosing_name,omitempty"`
}

// Doc returns the docstring text, or "" when the function has none.
func (f FunctionRecord) Doc() string {
	if f.DocText == nil {
		return ""
	}
	return *f.DocText
}

// IsOneLiner reports whether the body starts on the header line (def f(): pass).
func (f FunctionRecord) IsOneLiner() bool {
	return f.BodyLine == f.HeaderEndLine
}

// FileStatus records why a FileReport has the functions it has.
type FileStatus string

const (
	StatusOK         FileStatus = "ok"
	StatusEmpty      FileStatus = "empty"
	StatusUnparsable FileStatus = "unparsable"
	StatusUnreadable FileStatus = "unreadable"
	StatusSkipped    FileStatus = "skipped"
)

// FileReport holds the functions found in one scanned file.
type FileReport struct {
	Path      string           `json:"file_path"`
	Functions []FunctionRecord `json:"functions"`
	Status    FileStatus       `json:"status"`
	Error     string           `json:"error,omitempty"`
}

// Documented returns how many functions in the file have a docstring.
func (r FileReport) Documented() int {
	n := 0
	for _, fn := range r.Functions {
		if fn.HasDoc {
			n++
		}
	}
	return n
}

// ScanResult is the outcome of a tree scan.
type ScanResult struct {
	Root string `json:"root"`
	// Reports holds files with at least one function, in walk order.
	Reports []FileReport `json:"reports"`
	// Dropped holds unparsable, unreadable and skipped files.
	Dropped []FileReport `json:"dropped,omitempty"`
	// FilesScanned counts every eligible .py file that was visited.
	FilesScanned int `json:"files_scanned"`
}
