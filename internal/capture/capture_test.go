package capture

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSurface = `{
  "module": "sample",
  "members": {
    "__all__": {"kind": "export-list", "names": ["greet", "VERSION"], "signature": null},
    "VERSION": {"kind": "scalar", "value": "'1.2'", "signature": null},
    "greet": {"kind": "callable", "signature": "(name)", "origin_module": "sample", "origin_name": "greet"},
    "builtin_like": {"kind": "callable", "signature": null},
    "Widget": {"kind": "class", "origin": "sample.Widget", "signature": null, "origin_module": "sample", "origin_name": "Widget"},
    "registry": {"kind": "other", "type": "dict", "signature": null}
  }
}`

func TestDecodeSurface_Classification(t *testing.T) {
	s, err := decodeSurface([]byte(sampleSurface), "sample")
	require.NoError(t, err)
	assert.Equal(t, "sample", s.Unit)

	el, ok := s.ExportList()
	require.True(t, ok)
	assert.Equal(t, []string{"greet", "VERSION"}, el.Names)

	assert.Equal(t, KindScalar, s.Members["VERSION"].Kind)
	assert.Equal(t, "'1.2'", s.Members["VERSION"].Value)

	greet := s.Members["greet"]
	assert.Equal(t, KindCallable, greet.Kind)
	require.NotNil(t, greet.Signature)
	assert.Equal(t, "(name)", *greet.Signature)
	assert.Equal(t, "sample", greet.OriginModule)
	assert.Equal(t, "greet", greet.OriginName)

	// Signature capture can fail without failing the capture as a whole.
	assert.Nil(t, s.Members["builtin_like"].Signature)

	assert.Equal(t, "sample.Widget", s.Members["Widget"].Origin)
	assert.Equal(t, "dict", s.Members["registry"].TypeName)

	assert.True(t, s.Has("Widget"))
	assert.False(t, s.Has("missing"))
}

func TestDecodeSurface_RejectsDuplicateExportLists(t *testing.T) {
	doc := `{"module": "m", "members": {
		"__all__": {"kind": "export-list", "names": ["a"]},
		"exports": {"kind": "export-list", "names": ["b"]}
	}}`
	_, err := decodeSurface([]byte(doc), "m")
	require.Error(t, err)
}

func TestDecodeSurface_RequestedUnitWins(t *testing.T) {
	// A worker or snapshot whose document carries a different module name
	// must still yield a surface keyed by the unit the caller asked for.
	doc := `{"module": "something_else", "members": {}}`
	s, err := decodeSurface([]byte(doc), "sample")
	require.NoError(t, err)
	assert.Equal(t, "sample", s.Unit)
}

func TestStaticProvider_Capture(t *testing.T) {
	fsys := fstest.MapFS{
		"sample.json": {Data: []byte(sampleSurface)},
	}
	p := NewStaticProvider(fsys)

	s, err := p.Capture(context.Background(), "sample")
	require.NoError(t, err)
	assert.Equal(t, "sample", s.Unit)
	assert.True(t, s.Has("greet"))
}

func TestStaticProvider_MissingUnitIsImportError(t *testing.T) {
	p := NewStaticProvider(fstest.MapFS{})

	_, err := p.Capture(context.Background(), "nope")
	require.Error(t, err)
	var importErr *ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, "nope", importErr.Unit)
}

func TestExecProvider_Capture(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not on PATH")
	}
	p := NewExecProvider("python3")

	s, err := p.Capture(context.Background(), "json")
	require.NoError(t, err)
	assert.Equal(t, "json", s.Unit)
	assert.True(t, s.Has("dumps"))
	assert.Equal(t, KindCallable, s.Members["dumps"].Kind)

	el, ok := s.ExportList()
	require.True(t, ok)
	assert.Contains(t, el.Names, "loads")
}

func TestExecProvider_ImportFailure(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not on PATH")
	}
	p := NewExecProvider("python3")

	_, err := p.Capture(context.Background(), "surely_not_a_real_module_xyz")
	require.Error(t, err)
	var importErr *ImportError
	require.True(t, errors.As(err, &importErr))
	assert.Equal(t, "surely_not_a_real_module_xyz", importErr.Unit)
}
