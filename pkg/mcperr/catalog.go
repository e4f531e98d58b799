package mcperr

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Code defines a canonical MCP error code used across tools.
type Code string

const (
	// Validation & Input
	Validation    Code = "VALIDATION"
	UnknownColumn Code = "UNKNOWN_COLUMN"

	// Upstream & Data
	UpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	MalformedUpstream   Code = "MALFORMED_UPSTREAM_DATA"
	SheetsConfigInvalid Code = "SHEETS_CONFIG_INVALID"

	// Resource & Limits
	BusyResource Code = "BUSY_RESOURCE"
	Timeout      Code = "TIMEOUT"
)

// Entry documents a code's standard message, retry semantics, and next steps.
type Entry struct {
	Code      Code
	Message   string
	Retryable bool
	NextSteps []string
}

// catalog maps canonical codes to guidance. Messages can be overridden per error.
var catalog = map[Code]Entry{
	Validation:    {Code: Validation, Message: "invalid inputs", Retryable: true, NextSteps: []string{"Correct the inputs per schema and retry", "See examples in tool description"}},
	UnknownColumn: {Code: UnknownColumn, Message: "predicate references a column that does not exist", Retryable: true, NextSteps: []string{"Call describe_member_fields or describe_sheet_fields to list available columns", "Check spelling; nested fields use dotted names like department.name"}},

	UpstreamUnavailable: {Code: UpstreamUnavailable, Message: "Kaonavi API could not be reached", Retryable: true, NextSteps: []string{"Verify KAONAVI_BASE_URL and credentials", "Retry after a short delay"}},
	MalformedUpstream:   {Code: MalformedUpstream, Message: "upstream record batch could not be flattened", Retryable: false, NextSteps: []string{"Inspect the sheet layout in Kaonavi; repeated groups need a name/values shape"}},
	SheetsConfigInvalid: {Code: SheetsConfigInvalid, Message: "sheets config file is missing or invalid", Retryable: false, NextSteps: []string{"Provide a sheets config with a top-level sheets list", "Set KAONAVI_MCP_SHEETS_CONFIG to its path"}},

	BusyResource: {Code: BusyResource, Message: "concurrent request limit reached", Retryable: true, NextSteps: []string{"Retry after a short delay"}},
	Timeout:      {Code: Timeout, Message: "operation exceeded configured time limit", Retryable: true, NextSteps: []string{"Retry, or narrow the filter predicate"}},
}

// normalize builds a standard error string including next steps for MCP clients that
// surface only a message string. Format: "CODE: message" followed by a guidance tail.
func normalize(code Code, msg string) string {
	base := strings.TrimSpace(msg)
	e, ok := catalog[code]
	if !ok {
		if base == "" {
			return string(code)
		}
		return fmt.Sprintf("%s: %s", string(code), base)
	}
	if base == "" {
		base = e.Message
	}
	guidance := ""
	if len(e.NextSteps) > 0 {
		guidance = " | nextSteps: " + strings.Join(e.NextSteps, "; ")
	}
	return fmt.Sprintf("%s: %s%s", e.Code, base, guidance)
}

// New returns an MCP error result for a given code and optional message override.
func New(code Code, message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, message))
}

// Wrapf formats details and returns an MCP error result for the code.
func Wrapf(code Code, format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, fmt.Sprintf(format, args...)))
}
