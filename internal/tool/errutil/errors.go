// Package errutil holds the sentinel errors shared by the built-in tools.
package errutil

import "errors"

var (
	// File operation errors
	ErrFileExists                   = errors.New("file already exists, use edit_file instead")
	ErrFileMissing                  = errors.New("file does not exist")
	ErrIsDirectory                  = errors.New("path is a directory")
	ErrBinaryFile                   = errors.New("binary files are not supported")
	ErrTooLarge                     = errors.New("file or content exceeds size limit")
	ErrSnippetNotFound              = errors.New("snippet not found in file")
	ErrExpectedReplacementsMismatch = errors.New("expected replacements count does not match actual occurrences")
	ErrInvalidOffset                = errors.New("offset must be >= 0")
	ErrInvalidLimit                 = errors.New("limit must be >= 0")

	// Search errors
	ErrInvalidPattern = errors.New("invalid search pattern")

	// Shell errors
	ErrEmptyCommand = errors.New("command cannot be empty")
	ErrShellTimeout = errors.New("shell command timed out")

	// Todo errors
	ErrEmptyDescription = errors.New("description cannot be empty")
	ErrInvalidStatus    = errors.New("invalid status")
)
