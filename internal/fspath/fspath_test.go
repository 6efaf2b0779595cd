package fspath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"//", "/"},
		{"a", "/a"},
		{"/a", "/a"},
		{"/a/", "/a"},
		{"/a//b", "/a/b"},
		{"///a///b///", "/a/b"},
		{"/a/./b", "/a/b"},
		{"/a/b/..", "/a"},
		{"/a/../..", "/"},
		{"/..", "/"},
		{"/../../a", "/a"},
		{"./a", "/a"},
		{"a/b/c", "/a/b/c"},
		{"/a/b/../c/./d", "/a/c/d"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"", "/", "//x//y/..", "a/./b/../c", "/deep/nested/path/", "..", "/.."}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize not idempotent for %q", in)
	}
}

func TestBasename(t *testing.T) {
	assert.Equal(t, "", Basename("/"))
	assert.Equal(t, "", Basename(""))
	assert.Equal(t, "a", Basename("/a"))
	assert.Equal(t, "c.txt", Basename("/a/b/c.txt"))
	assert.Equal(t, "b", Basename("/a/b/"))
}

func TestDir(t *testing.T) {
	assert.Equal(t, "/", Dir("/"))
	assert.Equal(t, "/", Dir("/a"))
	assert.Equal(t, "/a", Dir("/a/b"))
	assert.Equal(t, "/a/b", Dir("/a/b/c"))
}

func TestSplit(t *testing.T) {
	assert.Nil(t, Split("/"))
	assert.Equal(t, []string{"a"}, Split("/a"))
	assert.Equal(t, []string{"a", "b", "c"}, Split("/a/b/c"))
}

func TestAncestors(t *testing.T) {
	assert.Nil(t, Ancestors("/"))
	assert.Nil(t, Ancestors("/a"))
	assert.Equal(t, []string{"/a"}, Ancestors("/a/b"))
	assert.Equal(t, []string{"/a", "/a/b"}, Ancestors("/a/b/c"))
}

func TestIsDescendant(t *testing.T) {
	assert.True(t, IsDescendant("/", "/a"))
	assert.True(t, IsDescendant("/a", "/a/b"))
	assert.True(t, IsDescendant("/a", "/a/b/c"))
	assert.False(t, IsDescendant("/a", "/a"))
	assert.False(t, IsDescendant("/a", "/ab"))
	assert.False(t, IsDescendant("/a/b", "/a"))
	assert.False(t, IsDescendant("/", "/"))
}
