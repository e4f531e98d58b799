// Package query composes the cache, flattener, introspector, and filter
// evaluator into the operations the MCP tool layer calls.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/otokawa-k/kaonavi-mcp-server/internal/filter"
	"github.com/otokawa-k/kaonavi-mcp-server/internal/kaonavi"
	"github.com/otokawa-k/kaonavi-mcp-server/internal/store"
	"github.com/otokawa-k/kaonavi-mcp-server/internal/table"
)

// SourceKind distinguishes the members dataset from sheet datasets.
type SourceKind string

const (
	SourceMembers SourceKind = "members"
	SourceSheet   SourceKind = "sheet"
)

// Source identifies one upstream dataset. It is immutable and passed
// through every call; no shared mutable selector exists.
type Source struct {
	Kind    SourceKind
	SheetID int
}

// Members is the source for the members dataset.
func Members() Source {
	return Source{Kind: SourceMembers}
}

// Sheet is the source for one sheet dataset.
func Sheet(id int) Source {
	return Source{Kind: SourceSheet, SheetID: id}
}

// Key returns the cache key: "members" or "sheet:<id>".
func (s Source) Key() string {
	if s.Kind == SourceSheet {
		return fmt.Sprintf("sheet:%d", s.SheetID)
	}
	return string(SourceMembers)
}

// Fetcher is the upstream collaborator contract. kaonavi.Client satisfies
// it in production; tests inject counting fakes.
type Fetcher interface {
	FetchMembers(ctx context.Context) ([]byte, error)
	FetchSheet(ctx context.Context, sheetID int) ([]byte, error)
}

// Service resolves tables through cache-or-fetch and answers the
// caller-facing describe/list operations.
type Service struct {
	fetcher Fetcher
	cache   *store.Cache
	group   singleflight.Group
}

// NewService constructs the query facade.
func NewService(fetcher Fetcher, cache *store.Cache) *Service {
	return &Service{fetcher: fetcher, cache: cache}
}

// Resolve returns the table for a source: a fresh cache entry when one
// exists and bypass is false, otherwise one upstream fetch shared across
// concurrent callers of the same key. The shared fetch runs detached from
// any single caller's cancellation; an abandoning caller only stops
// waiting, the fetch completes for the others.
func (s *Service) Resolve(ctx context.Context, src Source, noCache bool) (*table.Table, error) {
	key := src.Key()
	if !noCache {
		if t, ok := s.cache.Get(key); ok {
			zerolog.Ctx(ctx).Debug().Str("source", key).Msg("cache hit")
			return t, nil
		}
	}

	ch := s.group.DoChan(key, func() (any, error) {
		t, err := s.fetchAndFlatten(context.WithoutCancel(ctx), src)
		if err != nil {
			return nil, err
		}
		s.cache.Put(key, t)
		return t, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		t := res.Val.(*table.Table)
		zerolog.Ctx(ctx).Debug().Str("source", key).Int("rows", t.Len()).Bool("shared", res.Shared).Msg("table resolved from upstream")
		return t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) fetchAndFlatten(ctx context.Context, src Source) (*table.Table, error) {
	switch src.Kind {
	case SourceSheet:
		raw, err := s.fetcher.FetchSheet(ctx, src.SheetID)
		if err != nil {
			return nil, err
		}
		return table.FlattenSheet(raw)
	default:
		raw, err := s.fetcher.FetchMembers(ctx)
		if err != nil {
			return nil, err
		}
		return table.FlattenMembers(raw)
	}
}

// DescribeFields resolves the source's table and renders per-column type
// and sample-value info as a JSON object in column order.
func (s *Service) DescribeFields(ctx context.Context, src Source, noCache bool) ([]byte, error) {
	t, err := s.Resolve(ctx, src, noCache)
	if err != nil {
		return nil, err
	}
	return table.DescribeJSON(t)
}

// ListRows resolves the source's table, optionally filters it, and
// renders the rows as a JSON array of objects in column order.
//
// A malformed predicate is recovered locally into a {"error": ...}
// payload so the agent can correct it and retry; unknown columns and
// upstream or flattening failures return errors.
func (s *Service) ListRows(ctx context.Context, src Source, predicate string, noCache bool) ([]byte, error) {
	t, err := s.Resolve(ctx, src, noCache)
	if err != nil {
		return nil, err
	}
	if predicate != "" {
		filtered, err := filter.Apply(t, predicate)
		var parseErr *filter.ParseError
		if errors.As(err, &parseErr) {
			zerolog.Ctx(ctx).Warn().Str("predicate", predicate).Str("reason", parseErr.Reason).Msg("predicate rejected")
			return json.Marshal(map[string]string{
				"error": "Invalid predicate: " + parseErr.Predicate,
			})
		}
		if err != nil {
			return nil, err
		}
		t = filtered
	}
	return t.MarshalRows()
}

// IsUpstreamErr reports whether err came from the upstream collaborator.
func IsUpstreamErr(err error) bool {
	return errors.Is(err, kaonavi.ErrUpstreamUnavailable)
}

// IsMalformedErr reports whether err came from flattening malformed
// upstream data.
func IsMalformedErr(err error) bool {
	return errors.Is(err, table.ErrMalformedData)
}
