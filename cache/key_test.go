package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type complexArg struct {
	Name string
}

type chatID int64

type locale string

var keyTests = []struct {
	name string
	args Args
	out  string
}{
	{"no arguments", nil, "op"},
	{"primitives", Args{Positional(42), Positional("abc"), Positional(1.5)}, "op:42:abc:1.5"},
	{"sized integers", Args{Positional(int64(-7)), Positional(uint8(3))}, "op:-7:3"},
	{"defined types use their value", Args{Positional(chatID(-100)), Named("locale", locale("de"))}, "op:-100:locale=de"},
	{"named arguments keep call order", Args{Named("b", 2), Named("a", 1)}, "op:b=2:a=1"},
	{"positional before named", Args{Named("a", 1), Positional("x")}, "op:x:a=1"},
	{"time values", Args{Positional(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)), Named("since", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))}, "op:2024-03-10T08:00:00Z:since=2024-03-09T00:00:00Z"},
	{"other types only contribute their type", Args{Positional(complexArg{Name: "a"}), Named("repo", &complexArg{})}, "op:cache.complexArg:repo=*cache.complexArg"},
	{"update_cache is not part of the key", Args{Positional(1), Named(UpdateCacheArg, true)}, "op:1"},
}

func TestKey(t *testing.T) {
	for _, tt := range keyTests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.out, Key("op", tt.args))
		})
	}
}

func TestKey_Deterministic(t *testing.T) {
	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.FixedZone("CET", 3600))
	args := func() Args {
		return Args{Positional(int64(12)), Positional("title"), Named("at", at), Named("limit", 3)}
	}
	first := Key("group_exist", args())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Key("group_exist", args()))
	}
	assert.NotEqual(t, first, Key("group_exist", Args{Positional(int64(13)), Positional("title"), Named("at", at), Named("limit", 3)}))
}

func TestKey_DefinedIntegerTypesDoNotCollide(t *testing.T) {
	a := Key("group_exist", Args{Positional(chatID(-100))})
	b := Key("group_exist", Args{Positional(chatID(-200))})
	assert.NotEqual(t, a, b)
	assert.Equal(t, "group_exist:-100", a)
}

func TestKey_NonPrimitiveArgumentsCollide(t *testing.T) {
	a := Key("op", Args{Positional(1), Positional(complexArg{Name: "first"})})
	b := Key("op", Args{Positional(1), Positional(complexArg{Name: "second"})})
	assert.Equal(t, a, b)
}

func TestArgs_ForceRefresh(t *testing.T) {
	tests := []struct {
		name string
		args Args
		out  bool
	}{
		{"missing", Args{Positional(1)}, false},
		{"true", Args{Named(UpdateCacheArg, true)}, true},
		{"false", Args{Named(UpdateCacheArg, false)}, false},
		{"non zero number", Args{Named(UpdateCacheArg, 1)}, true},
		{"empty string", Args{Named(UpdateCacheArg, "")}, false},
		{"nil", Args{Named(UpdateCacheArg, nil)}, false},
		{"positional value with the same content", Args{Positional(UpdateCacheArg)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.out, tt.args.ForceRefresh())
		})
	}
}
