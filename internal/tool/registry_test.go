package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aide-agent/aide/internal/permission"
)

type stubTool struct {
	name string
	out  string
	err  error
	got  map[string]any
}

func (s *stubTool) Name() string { return s.name }

func (s *stubTool) Declaration() Declaration {
	return Declaration{Name: s.name, Description: "stub"}
}

func (s *stubTool) Access(map[string]any) Access {
	return Access{Op: permission.OpRead}
}

func (s *stubTool) Execute(_ context.Context, args map[string]any) (string, error) {
	s.got = args
	return s.out, s.err
}

func TestRegistryInvoke(t *testing.T) {
	echo := &stubTool{name: "echo", out: "done"}
	r := NewRegistry(echo)

	out, err := r.Invoke(context.Background(), "echo", map[string]any{"k": "v"})

	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, map[string]any{"k": "v"}, echo.got)
}

func TestRegistryUnknownToolListsDeclarations(t *testing.T) {
	r := NewRegistry(&stubTool{name: "echo"})

	_, err := r.Invoke(context.Background(), "missing", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `tool "missing" does not exist`)
	assert.Contains(t, err.Error(), `"echo"`)
}

func TestRegistryDeclarationsSorted(t *testing.T) {
	r := NewRegistry(&stubTool{name: "zeta"}, &stubTool{name: "alpha"}, &stubTool{name: "mid"})

	decls := r.Declarations()

	require.Len(t, decls, 3)
	assert.Equal(t, "alpha", decls[0].Name)
	assert.Equal(t, "mid", decls[1].Name)
	assert.Equal(t, "zeta", decls[2].Name)
}

func TestDecodeArgs(t *testing.T) {
	type req struct {
		Path  string `json:"path"`
		Limit int    `json:"limit"`
		Deep  bool   `json:"deep"`
	}

	var r req
	err := DecodeArgs(map[string]any{
		"path":  "a.go",
		"limit": float64(7), // JSON numbers decode as float64
		"deep":  true,
	}, &r)

	require.NoError(t, err)
	assert.Equal(t, req{Path: "a.go", Limit: 7, Deep: true}, r)
}

func TestDecodeArgsRejectsWrongShape(t *testing.T) {
	type req struct {
		Limit int `json:"limit"`
	}

	var r req
	err := DecodeArgs(map[string]any{"limit": map[string]any{"nested": 1}}, &r)

	assert.Error(t, err)
}
