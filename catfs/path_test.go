package catfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalCleansPath(t *testing.T) {
	cases := map[string]string{
		"":            "",
		"/":           "",
		"a/b":         "a/b",
		"/a/b":        "a/b",
		"a/b/":        "a/b",
		"a/../b":      "b",
		"./a/./b":     "a/b",
		"//a//b":      "a/b",
	}
	for in, want := range cases {
		assert.Equal(t, want, canonical(in), in)
	}
}

func TestSourceAndCachePathJoinRoots(t *testing.T) {
	c := &Core{opt: Options{SourceRoot: "/src", CacheRoot: "/cache"}}
	assert.Equal(t, "/src/a/b", c.sourcePath("a/b"))
	assert.Equal(t, "/cache/a/b", c.cachePath("/a/b/"))
}
