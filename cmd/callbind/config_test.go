package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rhino1998/callbind/pkg/binder"
	"github.com/rhino1998/callbind/pkg/callsite"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	r := require.New(t)

	bc, cc, err := loadConfig("")
	r.NoError(err)
	r.Equal(binder.DefaultConfig(), bc)
	r.Equal(callsite.DefaultConfig(), cc)
}

func TestLoadConfigOverrides(t *testing.T) {
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "callbind.toml")
	r.NoError(os.WriteFile(path, []byte(`
[binder]
max_narrowing = 1
disable_delegates = true

[cache]
max_polymorphic = 8
`), 0o644))

	bc, cc, err := loadConfig(path)
	r.NoError(err)
	r.Equal(binder.NarrowingRange{Min: binder.NarrowingNone, Max: binder.NarrowingOne}, bc.Narrowing)
	r.True(bc.DisableDelegates)
	r.Equal(binder.DefaultConfig().MaxSplatExpansion, bc.MaxSplatExpansion)
	r.Equal(8, cc.MaxPolymorphic)
	r.Equal(callsite.DefaultConfig().MaxMegamorphic, cc.MaxMegamorphic)
}

func TestLoadConfigErrors(t *testing.T) {
	r := require.New(t)

	_, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	r.ErrorIs(err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.toml")
	r.NoError(os.WriteFile(path, []byte("[binder\n"), 0o644))

	_, _, err = loadConfig(path)
	r.Error(err)
}
