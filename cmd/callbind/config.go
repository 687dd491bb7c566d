package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/rhino1998/callbind/pkg/binder"
	"github.com/rhino1998/callbind/pkg/callsite"
)

type binderSection struct {
	MinNarrowing      int  `toml:"min_narrowing"`
	MaxNarrowing      int  `toml:"max_narrowing"`
	MaxSplatExpansion int  `toml:"max_splat_expansion"`
	DisableDelegates  bool `toml:"disable_delegates"`
}

type cacheSection struct {
	MaxPolymorphic int `toml:"max_polymorphic"`
	MaxMegamorphic int `toml:"max_megamorphic"`
}

type fileConfig struct {
	Binder binderSection `toml:"binder"`
	Cache  cacheSection  `toml:"cache"`
}

func defaultFileConfig() fileConfig {
	b := binder.DefaultConfig()
	c := callsite.DefaultConfig()

	return fileConfig{
		Binder: binderSection{
			MinNarrowing:      int(b.Narrowing.Min),
			MaxNarrowing:      int(b.Narrowing.Max),
			MaxSplatExpansion: b.MaxSplatExpansion,
			DisableDelegates:  b.DisableDelegates,
		},
		Cache: cacheSection{
			MaxPolymorphic: c.MaxPolymorphic,
			MaxMegamorphic: c.MaxMegamorphic,
		},
	}
}

// loadConfig reads an optional TOML config. Keys the file omits keep their defaults.
func loadConfig(path string) (binder.Config, callsite.Config, error) {
	fc := defaultFileConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return binder.Config{}, callsite.Config{}, fmt.Errorf("cannot read %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, &fc); err != nil {
			return binder.Config{}, callsite.Config{}, fmt.Errorf("parse error in %s: %w", path, err)
		}
	}

	bc := binder.Config{
		Narrowing: binder.NarrowingRange{
			Min: binder.NarrowingLevel(fc.Binder.MinNarrowing),
			Max: binder.NarrowingLevel(fc.Binder.MaxNarrowing),
		},
		MaxSplatExpansion: fc.Binder.MaxSplatExpansion,
		DisableDelegates:  fc.Binder.DisableDelegates,
	}

	cc := callsite.Config{
		MaxPolymorphic: fc.Cache.MaxPolymorphic,
		MaxMegamorphic: fc.Cache.MaxMegamorphic,
	}

	return bc, cc, nil
}
