package wasmir

import "fmt"

// UnsupportedFeatureError is returned when a module uses a WASM feature
// this translator does not implement. It is distinct from a plain error so
// callers can distinguish "your module needs a feature we don't have" from
// internal layout failures via errors.As, giving each error class its own
// type. The CLI does not make this distinction: every translation failure
// gets the same exit code.
type UnsupportedFeatureError struct {
	Feature string
	Detail  string
}

func NewUnsupportedFeatureError(feature, detail string) *UnsupportedFeatureError {
	return &UnsupportedFeatureError{Feature: feature, Detail: detail}
}

func (e *UnsupportedFeatureError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("wasmir: unsupported feature: %s", e.Feature)
	}
	return fmt.Sprintf("wasmir: unsupported feature %s: %s", e.Feature, e.Detail)
}

// UnknownImportError is raised for imports outside modules "glk"/"glulx".
type UnknownImportError struct {
	Module, Field string
}

func NewUnknownImportError(module, field string) *UnknownImportError {
	return &UnknownImportError{Module: module, Field: field}
}

func (e *UnknownImportError) Error() string {
	return fmt.Sprintf("wasmir: unknown import %q.%q: only \"glk\" and \"glulx\" modules are supported", e.Module, e.Field)
}

// WrongSignatureImportError is raised when a recognized "glk"/"glulx"
// import is declared with a function type that doesn't match the fixed
// signature the binding expects.
type WrongSignatureImportError struct {
	Module, Field string
	WantParams    int
	WantResults   int
	GotParams     int
	GotResults    int
}

func NewWrongSignatureImportError(module, field string, wantParams, wantResults, gotParams, gotResults int) *WrongSignatureImportError {
	return &WrongSignatureImportError{
		Module: module, Field: field,
		WantParams: wantParams, WantResults: wantResults,
		GotParams: gotParams, GotResults: gotResults,
	}
}

func (e *WrongSignatureImportError) Error() string {
	return fmt.Sprintf("wasmir: import %q.%q declared with %d params/%d results, want %d params/%d results",
		e.Module, e.Field, e.GotParams, e.GotResults, e.WantParams, e.WantResults)
}
