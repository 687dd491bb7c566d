package callsite_test

import (
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/rhino1998/callbind/pkg/binder"
	"github.com/rhino1998/callbind/pkg/binder/types"
	"github.com/rhino1998/callbind/pkg/callsite"
	"github.com/rhino1998/callbind/pkg/object"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newCache(t *testing.T, maxPolymorphic int) *callsite.Cache {
	t.Helper()

	logger := slogt.New(t)
	b, err := binder.New(logger, binder.DefaultConfig(), nil)
	require.NoError(t, err)

	config := callsite.DefaultConfig()
	config.MaxPolymorphic = maxPolymorphic

	c, err := callsite.NewCache(logger, b, config)
	require.NoError(t, err)
	return c
}

func identity(t *testing.T) *binder.Overloads {
	t.Helper()

	o, err := binder.NewOverloads("identity", &binder.Method{
		Name:       "identity",
		Parameters: []binder.Parameter{{Name: "x", Type: types.Object}},
		Return:     types.Object,
		Body: binder.ImplementationFunc(func(inv *binder.Invocation) (any, error) {
			return inv.Args[0], nil
		}),
	})
	require.NoError(t, err)
	return o
}

func TestSiteStateTransitions(t *testing.T) {
	r := require.New(t)
	c := newCache(t, 2)
	site := c.NewSite(identity(t), binder.PositionalSignature(1))
	r.Equal(callsite.Empty, site.State())

	res, err := site.Invoke(int32(1))
	r.NoError(err)
	r.Equal(int32(1), res)
	r.Equal(callsite.Monomorphic, site.State())

	res, err = site.Invoke(int32(2))
	r.NoError(err)
	r.Equal(int32(2), res)
	r.Equal(callsite.Monomorphic, site.State())

	_, err = site.Invoke("s")
	r.NoError(err)
	r.Equal(callsite.Polymorphic, site.State())
	r.Equal(2, c.Len())

	_, err = site.Invoke(true)
	r.NoError(err)
	r.Equal(callsite.Megamorphic, site.State())
	r.Equal(3, c.Len())
	r.Equal(uint64(3), c.Binds())

	res, err = site.Invoke(int32(3))
	r.NoError(err)
	r.Equal(int32(3), res)
	r.Equal(callsite.Megamorphic, site.State())
	r.Equal(3, c.Len())
	r.Equal(uint64(3), c.Binds())

	hits, misses := site.Stats()
	r.Equal(uint64(1), hits)
	r.Equal(uint64(4), misses)

	site.Close()
	r.Equal(0, c.Len())
}

func TestMegamorphicSiteKeepsPlansAlive(t *testing.T) {
	r := require.New(t)

	logger := slogt.New(t)
	b, err := binder.New(logger, binder.DefaultConfig(), nil)
	r.NoError(err)

	c, err := callsite.NewCache(logger, b, callsite.Config{MaxPolymorphic: 1, MaxMegamorphic: 2})
	r.NoError(err)
	site := c.NewSite(identity(t), binder.PositionalSignature(1))

	_, err = site.Invoke(int32(1))
	r.NoError(err)
	_, err = site.Invoke("s")
	r.NoError(err)
	r.Equal(callsite.Megamorphic, site.State())
	r.Equal(uint64(2), c.Binds())

	for range 5 {
		res, err := site.Invoke(int32(1))
		r.NoError(err)
		r.Equal(int32(1), res)
	}
	r.Equal(uint64(2), c.Binds())
	r.Equal(2, c.Len())

	_, err = site.Invoke(true)
	r.NoError(err)
	r.Equal(uint64(3), c.Binds())
	r.Equal(2, c.Len())

	_, err = site.Invoke(int32(1))
	r.NoError(err)
	r.Equal(uint64(4), c.Binds())
	r.Equal(2, c.Len())

	site.Close()
	r.Equal(0, c.Len())
}

type proc struct{}

func (proc) Type() types.Type {
	return &types.Delegate{Parameters: []types.Type{types.Int32}}
}

func TestSiteKeysVoidDelegate(t *testing.T) {
	r := require.New(t)
	c := newCache(t, 4)
	site := c.NewSite(identity(t), binder.PositionalSignature(1))

	res, err := site.Invoke(proc{})
	r.NoError(err)
	r.Equal(proc{}, res)

	_, err = site.Invoke(proc{})
	r.NoError(err)

	hits, _ := site.Stats()
	r.Equal(uint64(1), hits)
	r.Equal(uint64(1), c.Binds())
}

func TestSiteDictionarySpreadKeys(t *testing.T) {
	r := require.New(t)
	c := newCache(t, 4)

	o, err := binder.NewOverloads("f", &binder.Method{
		Name:       "f",
		Parameters: []binder.Parameter{{Name: "a", Type: types.Int32}},
		Return:     types.Int32,
		Body: binder.ImplementationFunc(func(inv *binder.Invocation) (any, error) {
			return inv.Args[0], nil
		}),
	})
	r.NoError(err)
	site := c.NewSite(o, binder.NewCallSignature(binder.DictionaryArgument()))

	symbols := object.NewHash()
	symbols.Set(object.Symbol("a"), int32(1))
	strs := object.NewHash()
	strs.Set("a", int32(2))

	tests := []struct {
		dict any
		want int32
	}{
		{symbols, 1},
		{strs, 2},
		{map[string]any{"a": int32(3)}, 3},
	}

	for _, test := range tests {
		res, err := site.Invoke(test.dict)
		r.NoError(err)
		r.Equal(test.want, res)
	}
}

func TestSitesSharePlans(t *testing.T) {
	r := require.New(t)
	c := newCache(t, 4)
	o := identity(t)

	a := c.NewSite(o, binder.PositionalSignature(1))
	b := c.NewSite(o, binder.PositionalSignature(1))

	_, err := a.Invoke(int32(1))
	r.NoError(err)
	_, err = b.Invoke(int32(2))
	r.NoError(err)

	r.Equal(uint64(1), c.Binds())
	r.Equal(1, c.Len())

	a.Close()
	r.Equal(callsite.Empty, a.State())
	r.Equal(1, c.Len())

	b.Close()
	r.Equal(0, c.Len())
}

func TestConcurrentAcquireBindsOnce(t *testing.T) {
	r := require.New(t)
	c := newCache(t, 4)
	o := identity(t)

	const workers = 32
	entries := make([]*callsite.Entry, workers)
	start := make(chan struct{})

	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			<-start

			actual, err := c.Binder().Normalize(o, binder.PositionalSignature(1), binder.RestrictArguments(int32(i)))
			if err != nil {
				return err
			}

			entries[i], err = c.Acquire(o, actual)
			return err
		})
	}
	close(start)
	r.NoError(g.Wait())

	r.Equal(uint64(1), c.Binds())
	r.Equal(1, c.Len())
	for _, e := range entries {
		r.Same(entries[0], e)
	}

	for _, e := range entries {
		e.Release()
	}
	r.Equal(0, c.Len())
	r.Panics(func() { entries[0].Release() })
}

func TestValueRestrictedCallsBypassCache(t *testing.T) {
	r := require.New(t)
	c := newCache(t, 4)
	site := c.NewSite(identity(t), binder.PositionalSignature(1))

	restricted, err := binder.NewRestrictedArguments([]any{int32(7)}, []types.Type{types.Int32}, true)
	r.NoError(err)

	res, err := site.InvokeRestricted(restricted, []any{int32(7)})
	r.NoError(err)
	r.Equal(int32(7), res)

	r.Equal(callsite.Empty, site.State())
	r.Equal(0, c.Len())
	r.Equal(uint64(0), c.Binds())
}

func TestFailedBindIsNotCached(t *testing.T) {
	r := require.New(t)
	c := newCache(t, 4)
	site := c.NewSite(identity(t), binder.PositionalSignature(2))

	_, err := site.Invoke(int32(1), int32(2))
	r.ErrorIs(err, binder.ErrNoApplicableMethod)
	r.Equal(callsite.Empty, site.State())
	r.Equal(0, c.Len())
}

func TestConfigValidate(t *testing.T) {
	config := callsite.Config{MaxPolymorphic: 0}
	require.Error(t, config.Validate(slogt.New(t)))

	config = callsite.Config{MaxPolymorphic: 1, MaxMegamorphic: -1}
	require.Error(t, config.Validate(slogt.New(t)))

	config = callsite.DefaultConfig()
	require.NoError(t, config.Validate(slogt.New(t)))
}
