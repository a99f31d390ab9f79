package command

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed keywords.toml
var keywordsTOML string

type keywordFile struct {
	Keywords map[string][]string `toml:"keywords"`
}

// aliases maps an upper-cased alias to its canonical kind.
var aliases = mustLoadAliases(keywordsTOML)

func mustLoadAliases(src string) map[string]Kind {
	m, err := loadAliases(src)
	if err != nil {
		panic(err)
	}
	return m
}

func loadAliases(src string) (map[string]Kind, error) {
	var f keywordFile
	if _, err := toml.Decode(src, &f); err != nil {
		return nil, fmt.Errorf("loadAliases: %w", err)
	}

	out := make(map[string]Kind)
	for kind, names := range f.Keywords {
		k := Kind(strings.ToUpper(kind))
		if !k.known() {
			return nil, fmt.Errorf("loadAliases: unknown kind %q", kind)
		}
		for _, n := range names {
			n = strings.ToUpper(strings.TrimSpace(n))
			if prev, dup := out[n]; dup && prev != k {
				return nil, fmt.Errorf("loadAliases: alias %q bound to %s and %s", n, prev, k)
			}
			out[n] = k
		}
	}
	return out, nil
}
