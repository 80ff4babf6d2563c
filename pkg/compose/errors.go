package compose

import "fmt"

// ErrorKind classifies a composition failure.
type ErrorKind string

const (
	KindMissingFile       ErrorKind = "missing_file"
	KindCircularReference ErrorKind = "circular_reference"
	KindInvalidPrimPath   ErrorKind = "invalid_prim_path"
	KindParseError        ErrorKind = "parse_error"
)

// Error is a non-fatal composition failure. The affected arc contributes
// nothing to the result; everything else still composes.
type Error struct {
	Kind      ErrorKind `json:"type"`
	Message   string    `json:"message"`
	FilePath  string    `json:"filePath"`
	Line      int       `json:"line,omitempty"`
	AssetPath string    `json:"assetPath,omitempty"` // as authored
}

func (e Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.FilePath, e.Line, e.Message)
	}
	if e.FilePath != "" {
		return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
	}
	return e.Message
}

// CountKind returns how many errors of the given kind are in errs.
func CountKind(errs []Error, kind ErrorKind) int {
	n := 0
	for _, e := range errs {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
