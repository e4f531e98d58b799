package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/otokawa-k/kaonavi-mcp-server/internal/filter"
	"github.com/otokawa-k/kaonavi-mcp-server/internal/query"
	"github.com/otokawa-k/kaonavi-mcp-server/pkg/mcperr"
	"github.com/otokawa-k/kaonavi-mcp-server/pkg/validation"
)

// --- Input schemas (typed for discovery) ---

// DescribeMemberFieldsInput defines parameters for describe_member_fields.
type DescribeMemberFieldsInput struct {
	NoCache bool `json:"no_cache,omitempty" jsonschema_description:"If true, ignores the cache and fetches fresh data from the Kaonavi API"`
}

// DescribeSheetFieldsInput defines parameters for describe_sheet_fields.
type DescribeSheetFieldsInput struct {
	SheetID int  `json:"sheet_id" validate:"required,min=1" jsonschema_description:"ID of the sheet to retrieve fields from"`
	NoCache bool `json:"no_cache,omitempty" jsonschema_description:"If true, ignores the cache and fetches fresh data from the Kaonavi API"`
}

// GetMembersInput defines parameters for get_members.
type GetMembersInput struct {
	Query   string `json:"query,omitempty" jsonschema_description:"Filter predicate over member columns. Example: age >= 30 and department.name contains '営業'"`
	NoCache bool   `json:"no_cache,omitempty" jsonschema_description:"If true, ignores the cache and fetches fresh data from the Kaonavi API"`
}

// GetSheetsInput defines parameters for get_sheets.
type GetSheetsInput struct {
	SheetID int    `json:"sheet_id" validate:"required,min=1" jsonschema_description:"ID of the sheet to retrieve"`
	Query   string `json:"query,omitempty" jsonschema_description:"Filter predicate over sheet columns. Example: code == 'A0001'"`
	NoCache bool   `json:"no_cache,omitempty" jsonschema_description:"If true, ignores the cache and fetches fresh data from the Kaonavi API"`
}

// GetSheetIDsInput defines parameters for get_sheet_ids.
type GetSheetIDsInput struct{}

// RegisterTools wires the five Kaonavi tools against the query facade.
// sheetsConfigPath points at the static sheet enumeration for
// get_sheet_ids.
func RegisterTools(s *server.MCPServer, reg *Registry, svc *query.Service, sheetsConfigPath string) {
	// describe_member_fields
	describeMembers := mcp.NewTool(
		"describe_member_fields",
		mcp.WithDescription("List available fields in Kaonavi member data.\n\nReturns metadata about each field in the member dataset, including its inferred type and example values. Useful before filtering with get_members.\n\nParameters:\n- no_cache: (optional) bypass the cache and fetch fresh data. Avoid unless specifically needed."),
		mcp.WithBoolean("no_cache", mcp.DefaultBool(false), mcp.Description("Bypass cache and fetch fresh data")),
	)
	s.AddTool(describeMembers, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in DescribeMemberFieldsInput) (*mcp.CallToolResult, error) {
		info, err := svc.DescribeFields(ctx, query.Members(), in.NoCache)
		if err != nil {
			return dataError(err), nil
		}
		return mcp.NewToolResultText("Available fields:\n" + string(info)), nil
	}))
	reg.Register(describeMembers)

	// describe_sheet_fields
	describeSheet := mcp.NewTool(
		"describe_sheet_fields",
		mcp.WithDescription("List available fields in a specific sheet of Kaonavi member data.\n\nReturns metadata about each field in the specified sheet, including its inferred type and example values. Useful before filtering with get_sheets.\n\nParameters:\n- sheet_id: ID of the sheet to retrieve fields from\n- no_cache: (optional) bypass the cache and fetch fresh data. Avoid unless specifically needed."),
		mcp.WithNumber("sheet_id", mcp.Required(), mcp.Min(1), mcp.Description("ID of the sheet to retrieve fields from")),
		mcp.WithBoolean("no_cache", mcp.DefaultBool(false), mcp.Description("Bypass cache and fetch fresh data")),
	)
	s.AddTool(describeSheet, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in DescribeSheetFieldsInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcp.NewToolResultError(msg), nil
		}
		info, err := svc.DescribeFields(ctx, query.Sheet(in.SheetID), in.NoCache)
		if err != nil {
			return dataError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Available fields in sheet %d:\n%s", in.SheetID, info)), nil
	}))
	reg.Register(describeSheet)

	// get_members
	getMembers := mcp.NewTool(
		"get_members",
		mcp.WithDescription("Retrieve filtered member list from Kaonavi.\n\nReturns member information, optionally filtered by a boolean predicate over column values. Use describe_member_fields beforehand to inspect the available columns.\n\nParameters:\n- query: (optional) filter predicate\n- no_cache: (optional) bypass the cache. Only use when explicitly instructed; cached data is usually sufficient.\n\nExamples for query:\n- age >= 30 and department.name == '営業'\n- city == '渋谷'\n- name contains '田中'"),
		mcp.WithString("query", mcp.Description("Filter predicate over member columns")),
		mcp.WithBoolean("no_cache", mcp.DefaultBool(false), mcp.Description("Bypass cache and fetch fresh data")),
	)
	s.AddTool(getMembers, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in GetMembersInput) (*mcp.CallToolResult, error) {
		rows, err := svc.ListRows(ctx, query.Members(), in.Query, in.NoCache)
		if err != nil {
			return dataError(err), nil
		}
		return mcp.NewToolResultText("Members information:\n" + string(rows)), nil
	}))
	reg.Register(getMembers)

	// get_sheets
	getSheets := mcp.NewTool(
		"get_sheets",
		mcp.WithDescription("Retrieve member data from a specific sheet in Kaonavi.\n\nFetches member information from a sheet, optionally filtered by a boolean predicate. Use describe_sheet_fields beforehand to inspect the available columns.\n\nNote: the filtering key for members is the employee code (code column), obtainable from get_members.\n\nParameters:\n- sheet_id: ID of the sheet to retrieve\n- query: (optional) filter predicate\n- no_cache: (optional) bypass the cache. Only use when explicitly instructed.\n\nExamples for query:\n- code == 'A0001'\n- `勤務地` contains '東京'"),
		mcp.WithNumber("sheet_id", mcp.Required(), mcp.Min(1), mcp.Description("ID of the sheet to retrieve")),
		mcp.WithString("query", mcp.Description("Filter predicate over sheet columns")),
		mcp.WithBoolean("no_cache", mcp.DefaultBool(false), mcp.Description("Bypass cache and fetch fresh data")),
	)
	s.AddTool(getSheets, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in GetSheetsInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcp.NewToolResultError(msg), nil
		}
		rows, err := svc.ListRows(ctx, query.Sheet(in.SheetID), in.Query, in.NoCache)
		if err != nil {
			return dataError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Members information from sheet %d:\n%s", in.SheetID, rows)), nil
	}))
	reg.Register(getSheets)

	// get_sheet_ids
	getSheetIDs := mcp.NewTool(
		"get_sheet_ids",
		mcp.WithDescription("Get a list of available sheet IDs and names for use with get_sheets. The list is loaded from the sheets config file; if the file is missing or invalid, an error is returned."),
	)
	s.AddTool(getSheetIDs, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in GetSheetIDsInput) (*mcp.CallToolResult, error) {
		cfg, err := LoadSheetsConfig(sheetsConfigPath)
		if err != nil {
			return mcperr.New(mcperr.SheetsConfigInvalid, err.Error()), nil
		}
		b, err := json.MarshalIndent(cfg.Sheets, "", "  ")
		if err != nil {
			return mcperr.New(mcperr.SheetsConfigInvalid, err.Error()), nil
		}
		return mcp.NewToolResultText("Sheet IDs:\n" + string(b)), nil
	}))
	reg.Register(getSheetIDs)
}

// dataError maps facade errors onto canonical tool error codes. Predicate
// parse errors never reach here; the facade recovers them into data.
func dataError(err error) *mcp.CallToolResult {
	var unknownCol *filter.UnknownColumnError
	switch {
	case errors.As(err, &unknownCol):
		return mcperr.Wrapf(mcperr.UnknownColumn, "unknown column %q", unknownCol.Column)
	case query.IsUpstreamErr(err):
		return mcperr.New(mcperr.UpstreamUnavailable, err.Error())
	case query.IsMalformedErr(err):
		return mcperr.New(mcperr.MalformedUpstream, err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
