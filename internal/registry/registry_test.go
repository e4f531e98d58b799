package registry

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/otokawa-k/kaonavi-mcp-server/internal/query"
	"github.com/otokawa-k/kaonavi-mcp-server/internal/store"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := New()
	require.Equal(t, 0, reg.Count())

	reg.Register(mcp.NewTool("zeta"))
	reg.Register(mcp.NewTool("alpha"))

	tool, ok := reg.Get("alpha")
	require.True(t, ok)
	require.Equal(t, "alpha", tool.Name)

	_, ok = reg.Get("missing")
	require.False(t, ok)

	tools, err := reg.Tools(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "zeta"}, []string{tools[0].Name, tools[1].Name})
}

type stubFetcher struct{}

func (stubFetcher) FetchMembers(ctx context.Context) ([]byte, error) { return []byte(`[]`), nil }
func (stubFetcher) FetchSheet(ctx context.Context, sheetID int) ([]byte, error) {
	return []byte(`[]`), nil
}

func TestRegisterToolsRegistersAll(t *testing.T) {
	s := server.NewMCPServer("test", "0.0.1")
	reg := New()
	svc := query.NewService(stubFetcher{}, store.NewCache(time.Minute, nil))

	RegisterTools(s, reg, svc, "sheets_config.json")

	require.Equal(t, 5, reg.Count())
	for _, name := range []string{
		"describe_member_fields",
		"describe_sheet_fields",
		"get_members",
		"get_sheets",
		"get_sheet_ids",
	} {
		_, ok := reg.Get(name)
		require.True(t, ok, name)
	}
}
