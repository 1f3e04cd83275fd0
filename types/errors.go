package types

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed template.
type ParseError struct {
	Message  string
	Token    string
	Position int
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("parse error at position %d near '%s': %s", e.Position, e.Token, e.Message)
	}
	return fmt.Sprintf("parse error at position %d: %s", e.Position, e.Message)
}

func NewParseError(message, token string, position int) error {
	return &ParseError{
		Message:  message,
		Token:    token,
		Position: position,
	}
}

// SchemaError reports duplicate, empty or missing field names.
type SchemaError struct {
	Message string
	Fields  []string
}

func (e *SchemaError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("schema error: %s: %s", e.Message, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("schema error: %s", e.Message)
}

func NewSchemaError(message string, fields ...string) error {
	return &SchemaError{
		Message: message,
		Fields:  fields,
	}
}

// FormatError reports malformed tabular input. Row is 1-based as shown in a spreadsheet.
type FormatError struct {
	Path    string
	Row     int
	Message string
	Cause   error
}

func (e *FormatError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("format error in '%s' at row %d: %s", e.Path, e.Row, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("format error in '%s': %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("format error in '%s': %s", e.Path, e.Message)
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}

func NewFormatError(path string, row int, message string, cause error) error {
	return &FormatError{
		Path:    path,
		Row:     row,
		Message: message,
		Cause:   cause,
	}
}

// IOError reports a file access failure or an expired I/O timeout.
type IOError struct {
	Operation string
	Path      string
	Cause     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error during %s of '%s': %v", e.Operation, e.Path, e.Cause)
}

func (e *IOError) Unwrap() error {
	return e.Cause
}

func NewIOError(operation, path string, cause error) error {
	return &IOError{
		Operation: operation,
		Path:      path,
		Cause:     cause,
	}
}

// ExportError wraps an encoder or write failure for one recipient.
type ExportError struct {
	Format         ExportFormat
	Path           string
	RecipientIndex int
	Cause          error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error for recipient %d (%s to '%s'): %v", e.RecipientIndex, e.Format, e.Path, e.Cause)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

func NewExportError(format ExportFormat, path string, recipientIndex int, cause error) error {
	return &ExportError{
		Format:         format,
		Path:           path,
		RecipientIndex: recipientIndex,
		Cause:          cause,
	}
}
