// Package errors provides custom error types for the gdcard system.
// These errors enable programmatic error checking across ingestion, cache
// reconstruction and commit, and let callers tell a user cancellation apart
// from a real failure without matching on message text.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Join is an alias for the standard library errors.Join.
var Join = errors.Join

// Is is an alias for the standard library errors.Is.
var Is = errors.Is

// As is an alias for the standard library errors.As.
var As = errors.As

// Common sentinel errors for the gdcard system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrCanceled indicates that an operation was canceled by the user
	ErrCanceled = errors.New("operation canceled")

	// ErrBusy indicates that another long-running operation is in progress
	ErrBusy = errors.New("another operation is in progress")

	// ErrNotConfigured indicates that no menu kind was selected
	ErrNotConfigured = errors.New("menu kind not configured")

	// ErrEmptyCatalog indicates that a save was requested with nothing to save
	ErrEmptyCatalog = errors.New("catalog is empty")

	// ErrTooManyMenuEntries indicates more than one reserved menu entry
	ErrTooManyMenuEntries = errors.New("more than one menu entry")

	// ErrUnreadableImage indicates that no recognized payload was found
	ErrUnreadableImage = errors.New("unreadable image")

	// ErrMissingFile indicates that a descriptor references an absent file
	ErrMissingFile = errors.New("missing file")

	// ErrNoImageFound indicates a cached folder without a supported image
	ErrNoImageFound = errors.New("no image found")

	// ErrMissingSerial indicates an entry without a product number where one is required
	ErrMissingSerial = errors.New("missing serial")

	// ErrSlotOutOfRange indicates a slot number the card layout cannot express
	ErrSlotOutOfRange = errors.New("slot number out of range")

	// ErrUnsupportedFormat indicates a container the native reader does not handle
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCorruptArchive indicates an archive that cannot be listed or extracted
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrCachedFailure indicates an error string stored in a cache sidecar
	ErrCachedFailure = errors.New("cached failure")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ImageError represents a disc image that could not be ingested.
type ImageError struct {
	Path    string
	Format  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ImageError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("unreadable %s image %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("unreadable image %s: %s", e.Path, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ImageError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ImageError) Is(target error) bool {
	return target == ErrUnreadableImage
}

// NewImageError creates a new ImageError
func NewImageError(path, format, message string, err error) *ImageError {
	return &ImageError{Path: path, Format: format, Message: message, Err: err}
}

// MissingFileError represents a file referenced by a descriptor that does not exist.
type MissingFileError struct {
	Path       string
	Descriptor string
}

// Error implements the error interface
func (e *MissingFileError) Error() string {
	if e.Descriptor != "" {
		return fmt.Sprintf("file %s referenced by %s is missing", e.Path, e.Descriptor)
	}
	return fmt.Sprintf("file %s is missing", e.Path)
}

// Is implements errors.Is support
func (e *MissingFileError) Is(target error) bool {
	return target == ErrMissingFile
}

// NewMissingFileError creates a new MissingFileError
func NewMissingFileError(path, descriptor string) *MissingFileError {
	return &MissingFileError{Path: path, Descriptor: descriptor}
}

// CacheError represents a failure reconstructing an entry from its sidecars.
type CacheError struct {
	Folder  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error in %s: %s", e.Folder, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *CacheError) Unwrap() error {
	return e.Err
}

// NewCacheError creates a new CacheError
func NewCacheError(folder, message string, err error) *CacheError {
	return &CacheError{Folder: folder, Message: message, Err: err}
}

// EntryError represents a per-entry failure during a save.
type EntryError struct {
	Entry string
	Slot  int
	Step  string
	Err   error
}

// Error implements the error interface
func (e *EntryError) Error() string {
	if e.Slot > 0 {
		return fmt.Sprintf("%s failed for %s (slot %d): %v", e.Step, e.Entry, e.Slot, e.Err)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Step, e.Entry, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *EntryError) Unwrap() error {
	return e.Err
}

// NewEntryError creates a new EntryError
func NewEntryError(entry string, slot int, step string, err error) *EntryError {
	return &EntryError{Entry: entry, Slot: slot, Step: step, Err: err}
}

// MenuCountError reports how many reserved menu entries were found.
type MenuCountError struct {
	Count int
}

// Error implements the error interface
func (e *MenuCountError) Error() string {
	return fmt.Sprintf("catalog holds %d menu entries, at most one is allowed", e.Count)
}

// Is implements errors.Is support
func (e *MenuCountError) Is(target error) bool {
	return target == ErrTooManyMenuEntries
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "gdi", "ip.bin", etc.
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "move", "copy"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ProcessError represents an error from an external process or command
type ProcessError struct {
	Operation string // What operation was being performed
	Command   string // The command that was executed
	Output    string // Stdout/stderr output from the process
	ExitCode  int    // Exit code if available
	Err       error  // Underlying error
}

// Error implements the error interface
func (e *ProcessError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("process error during %s (command: %s): %v\nOutput: %s", e.Operation, e.Command, e.Err, e.Output)
	}
	return fmt.Sprintf("process error during %s (command: %s): %v", e.Operation, e.Command, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ProcessError) Unwrap() error {
	return e.Err
}

// NewProcessError creates a new ProcessError
func NewProcessError(operation, command, output string, err error) *ProcessError {
	return &ProcessError{
		Operation: operation,
		Command:   command,
		Output:    output,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsCanceled checks if an error is a cancellation, either requested by the
// user or caused by a canceled context.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapImage wraps an error as an ImageError
func WrapImage(path, format string, err error) error {
	if err == nil {
		return nil
	}
	return NewImageError(path, format, err.Error(), err)
}

// WrapEntry wraps an error as an EntryError
func WrapEntry(entry string, slot int, step string, err error) error {
	if err == nil {
		return nil
	}
	return NewEntryError(entry, slot, step, err)
}
