package core

// error_messages.go maps technical errors to user messages with codes for
// support reference.
//
// # Error Codes Reference
//
// # Schema Errors (SCH001-SCH099)
//
//	SCH001 - Schema mismatch: column names of file and table differ
//	SCH002 - Not loadable: a table column cannot hold the file's data
//	SCH003 - Table missing: the table does not exist
//	SCH004 - Unsupported type: the database has no type for a column
//
// # Conversion Errors (CONV001-CONV099)
//
//	CONV001 - Conversion: a value could not be converted to the column type
//	CONV002 - Contract: a value reached a converter not meant for it
//	CONV003 - Duplicate key: the file repeats a key of a unique constraint
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Unknown format: the file extension is not supported
//	SRC002 - Unknown encoding: the character set name is not known
//	SRC003 - Empty file: the file has no header row
//	SRC004 - Malformed row: a row does not match the header
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: a row with this key already exists
//	DB002 - Unique constraint: a value must be unique
//	DB003 - Foreign key: referenced record does not exist
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//	DB007 - Deadlock
//	DB008 - Not null: a required column is empty
//
// # Load Errors (LOAD001-LOAD099)
//
//	LOAD001 - Busy: too many loads in progress
//	LOAD002 - Cancelled
//	LOAD003 - Timed out
//	LOAD004 - No file provided
//
// # Default Error (ERR000)
//
// Typed errors are matched first with errors.Is and errors.As. Other errors
// are matched case-insensitively by message pattern; the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tableload/internal/compare"
	"github.com/JonMunkholm/tableload/internal/destination"
	"github.com/JonMunkholm/tableload/internal/destination/dialect"
	"github.com/JonMunkholm/tableload/internal/source"
	"github.com/JonMunkholm/tableload/internal/transform"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgSchemaMismatch = UserMessage{
		Message: "The file's columns do not match the table's columns",
		Action:  "Rename the file's headers or load into a new table",
		Code:    "SCH001",
	}
	msgNotLoadable = UserMessage{
		Message: "A table column cannot hold the file's data",
		Action:  "Run compare to see which columns conflict",
		Code:    "SCH002",
	}
	msgTableMissing = UserMessage{
		Message: "The table does not exist",
		Action:  "Check the table name or allow the table to be created",
		Code:    "SCH003",
	}
	msgUnsupportedType = UserMessage{
		Message: "The database has no type for one of the columns",
		Action:  "Force a different type for that column",
		Code:    "SCH004",
	}
	msgConversion = UserMessage{
		Message: "A value could not be converted to the column type or does not fit it",
		Action:  "Fix the value, widen the column or add a custom date/time layout",
		Code:    "CONV001",
	}
	msgContract = UserMessage{
		Message: "A value reached a converter not meant for it",
		Action:  "Force the column type and contact support with the run ID",
		Code:    "CONV002",
	}
	msgFileDuplicate = UserMessage{
		Message: "The file repeats a key that must be unique",
		Action:  "Remove the duplicate rows from the file",
		Code:    "CONV003",
	}
	msgUnknownFormat = UserMessage{
		Message: "This file format is not supported",
		Action:  "Save the file as CSV, TSV or Arrow",
		Code:    "SRC001",
	}
	msgTooManyLoads = UserMessage{
		Message: "System is busy processing other loads",
		Action:  "Please wait a moment and try again",
		Code:    "LOAD001",
	}
	msgCancelled = UserMessage{
		Message: "The load was cancelled",
		Action:  "Start a new load when ready",
		Code:    "LOAD002",
	}
	msgTimeout = UserMessage{
		Message: "The load timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "LOAD003",
	}
)

// errorKinds match typed errors. They are checked before message patterns.
var errorKinds = []struct {
	match func(error) bool
	msg   UserMessage
}{
	{func(err error) bool { return errors.Is(err, ErrSchemaMismatch) }, msgSchemaMismatch},
	{func(err error) bool { return errors.Is(err, ErrNotLoadable) }, msgNotLoadable},
	{func(err error) bool { return errors.Is(err, destination.ErrTableNotFound) }, msgTableMissing},
	{func(err error) bool { return errors.Is(err, dialect.ErrUnsupportedType) }, msgUnsupportedType},
	{func(err error) bool { var c *compare.UniqueConflict; return errors.As(err, &c) }, msgFileDuplicate},
	{func(err error) bool { return errors.Is(err, transform.ErrContract) }, msgContract},
	{func(err error) bool { return errors.Is(err, transform.ErrConversion) }, msgConversion},
	{func(err error) bool { return errors.Is(err, source.ErrUnknownFormat) }, msgUnknownFormat},
	{func(err error) bool { return errors.Is(err, ErrTooManyLoads) }, msgTooManyLoads},
	{func(err error) bool { return errors.Is(err, context.Canceled) }, msgCancelled},
	{func(err error) bool { return errors.Is(err, context.DeadlineExceeded) }, msgTimeout},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. More specific patterns come first.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Database Constraint Errors (DB001-DB003, DB008)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A row with this key already exists in the table",
			Action:  "Clear the table first or remove rows that are already loaded",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your file",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Load the parent table first",
			Code:    "DB003",
		},
	},
	{
		pattern: "null value in column",
		msg: UserMessage{
			Message: "A required column is empty",
			Action:  "Fill in the column or make it nullable",
			Code:    "DB008",
		},
	},
	{
		pattern: "cannot insert the value null",
		msg: UserMessage{
			Message: "A required column is empty",
			Action:  "Fill in the column or make it nullable",
			Code:    "DB008",
		},
	},

	// =========================================================================
	// Database Connection Errors (DB004-DB007)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check the connection string and try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Source Errors (SRC002-SRC004)
	// =========================================================================
	{
		pattern: "unknown encoding",
		msg: UserMessage{
			Message: "The character set is not known",
			Action:  "Use a standard name such as utf-8 or windows-1252",
			Code:    "SRC002",
		},
	},
	{
		pattern: "no header row",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Upload a file with a header row",
			Code:    "SRC003",
		},
	},
	{
		pattern: "fields, header has",
		msg: UserMessage{
			Message: "A row has more fields than the header",
			Action:  "Check the delimiter and quoting of the file",
			Code:    "SRC004",
		},
	},

	// =========================================================================
	// Load Errors (LOAD004)
	// =========================================================================
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to load",
			Code:    "LOAD004",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(fmt.Errorf("load: %w", ErrSchemaMismatch))
//	// msg.Code == "SCH001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, k := range errorKinds {
		if k.match(err) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message. Error returns
// the user message; Unwrap returns the technical error for logging.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
