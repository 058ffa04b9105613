// Package core provides the business logic for document imports.
//
// # Error Codes Reference
//
// This file defines operator-facing error messages with codes for support
// reference. Batch jobs print the code next to the diagnostic pair, so a
// failed run can be looked up here.
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - No input: The input document path was not given
//	         Action: Pass the path of the document to import
//	         Patterns: "input path is required"
//
//	CFG002 - No identity: The table or library name could not be resolved
//	         Action: Pass TABLE= and DSN= or add them to the document
//	         Patterns: "identity not resolved"
//
//	CFG003 - Unknown encoding: The requested store encoding is not supported
//	         Action: Use a code page name such as IBM-037 or UTF-8
//	         Patterns: "unsupported encoding"
//
// # Document Errors (DOC001-DOC099)
//
//	DOC001 - Too large: The document exceeds the size limit
//	DOC002 - Syntax: The document is not well-formed
//	DOC003 - Encoding: The document encoding could not be determined
//	DOC004 - Read failure: The document could not be read
//
// # Lookup Errors (LKP001-LKP099)
//
//	LKP001 - Missing root field: keys, names or data is absent
//	LKP002 - No value fields: The names array is empty
//	LKP003 - Missing row field: A row lacks one of the schema fields
//
// # Schema Errors (SCH001)
//
//	SCH001 - Shape mismatch: The existing table has different fields
//	         Action: Rerun with FORCE to replace the table anyway
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - Table does not exist
//	TBL002 - Table already exists (rerun with REPL)
//	TBL003 - Duplicate key
//	TBL004 - Table not open
//	TBL005 - Unsupported store driver
//	TBL006 - Store unreachable
//
// # Encoding Errors (ENC001)
//
//	ENC001 - A value cannot be represented in the store encoding
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check the run log for the
// original error.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides operator-facing error information with guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps error text patterns (case-insensitive) to messages.
// Order matters: the first match wins.
var errorPatterns = []errorPattern{
	// Configuration
	{
		pattern: "input path is required",
		msg: UserMessage{
			Message: "No input document was given",
			Action:  "Pass the path of the document to import",
			Code:    "CFG001",
		},
	},
	{
		pattern: "identity not resolved",
		msg: UserMessage{
			Message: "The table identity could not be resolved",
			Action:  "Pass TABLE= and DSN= or add table and dsn fields to the document",
			Code:    "CFG002",
		},
	},
	{
		pattern: "unsupported encoding",
		msg: UserMessage{
			Message: "The requested store encoding is not supported",
			Action:  "Use a code page name such as IBM-037, IBM-1047 or UTF-8",
			Code:    "CFG003",
		},
	},

	// Document
	{
		pattern: "too_large",
		msg: UserMessage{
			Message: "The document exceeds the size limit",
			Action:  "Split the data over several documents",
			Code:    "DOC001",
		},
	},
	{
		pattern: "document too large",
		msg: UserMessage{
			Message: "The document exceeds the size limit",
			Action:  "Split the data over several documents",
			Code:    "DOC001",
		},
	},
	{
		pattern: "reason=syntax",
		msg: UserMessage{
			Message: "The document is not well-formed",
			Action:  "Validate the document before importing it",
			Code:    "DOC002",
		},
	},
	{
		pattern: "reason=encoding",
		msg: UserMessage{
			Message: "The document encoding could not be determined",
			Action:  "Save the document as UTF-8 or IBM-1047 starting with an object",
			Code:    "DOC003",
		},
	},
	{
		pattern: "reason=open",
		msg: UserMessage{
			Message: "The document could not be read",
			Action:  "Check the input path and its permissions",
			Code:    "DOC004",
		},
	},
	{
		pattern: "reason=read",
		msg: UserMessage{
			Message: "The document could not be read",
			Action:  "Check the input path and its permissions",
			Code:    "DOC004",
		},
	},

	// Lookup
	{
		pattern: "required root field not found",
		msg: UserMessage{
			Message: "A required document field is missing",
			Action:  "Add the keys, names and data fields to the document root",
			Code:    "LKP001",
		},
	},
	{
		pattern: "no value fields",
		msg: UserMessage{
			Message: "The document defines no value fields",
			Action:  "List at least one field in the names array",
			Code:    "LKP002",
		},
	},
	{
		pattern: "row field not found",
		msg: UserMessage{
			Message: "A row is missing one of the table fields",
			Action:  "Make every row carry all key and value fields",
			Code:    "LKP003",
		},
	},

	// Schema
	{
		pattern: "table shape differs",
		msg: UserMessage{
			Message: "The existing table has different fields",
			Action:  "Rerun with FORCE to replace the table anyway",
			Code:    "SCH001",
		},
	},

	// Table
	{
		pattern: "table does not exist",
		msg: UserMessage{
			Message: "Table not found",
			Action:  "Verify the table and library names",
			Code:    "TBL001",
		},
	},
	{
		pattern: "table already exists",
		msg: UserMessage{
			Message: "The table already exists",
			Action:  "Rerun with REPL to replace it",
			Code:    "TBL002",
		},
	},
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "Two rows share the same key",
			Action:  "Remove duplicate key values from the data array",
			Code:    "TBL003",
		},
	},
	{
		pattern: "table not open",
		msg: UserMessage{
			Message: "The table was not open",
			Action:  "Please try again or contact support",
			Code:    "TBL004",
		},
	},
	{
		pattern: "unsupported store driver",
		msg: UserMessage{
			Message: "The configured store driver is not supported",
			Action:  "Set STORE_DRIVER to sqlite, postgres, mysql or memory",
			Code:    "TBL005",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the store",
			Action:  "Please try again in a few moments",
			Code:    "TBL006",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "The store is busy",
			Action:  "Please try again when the other job has finished",
			Code:    "TBL006",
		},
	},

	// Encoding
	{
		pattern: "reason=conversion",
		msg: UserMessage{
			Message: "A value cannot be represented in the store encoding",
			Action:  "Choose a store encoding that covers the data",
			Code:    "ENC001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to an operator-facing message. If no pattern
// matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
