package abi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"

	"github.com/seal-runtime/seal-abi/abi"
)

func TestAPI_SameAddress(t *testing.T) {
	first := abi.API()
	for range 10 {
		assert.Same(t, first, abi.API())
	}
}

func TestAPI_VersionFieldsComeFirst(t *testing.T) {
	table := abi.API()

	assert.Equal(t, uint32(abi.Version), table.Version())
	require.GreaterOrEqual(t, table.Len(), 2)
	assert.Equal(t, "seal_abi_version", table.Field(0).Name)
	assert.Equal(t, "seal_abi_fields", table.Field(1).Name)
}

func TestAPI_FixedValueTypes(t *testing.T) {
	allowed := map[api.ValueType]bool{
		api.ValueTypeI32: true,
		api.ValueTypeI64: true,
		api.ValueTypeF64: true,
	}
	table := abi.API()
	for i := range table.Len() {
		f := table.Field(i)
		require.NotNil(t, f.Fn, f.Name)
		assert.LessOrEqual(t, len(f.Results), 1, f.Name)
		for _, vt := range append(append([]api.ValueType{}, f.Params...), f.Results...) {
			assert.True(t, allowed[vt], "%s uses %s", f.Name, api.ValueTypeName(vt))
		}
	}
}

func TestAPI_LookupMatchesOrder(t *testing.T) {
	table := abi.API()
	names := table.Names()
	require.Len(t, names, table.Len())

	seen := make(map[string]bool, len(names))
	for i, name := range names {
		assert.False(t, seen[name], "duplicate field %s", name)
		seen[name] = true

		f, ok := table.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, table.Field(i).Name, f.Name)
	}

	_, ok := table.Lookup("lua_breakpoint")
	assert.False(t, ok)
}

func TestAPI_FieldsAreCopies(t *testing.T) {
	table := abi.API()
	f, ok := table.Lookup("lua_pushnumber")
	require.True(t, ok)
	want := f.Signature()

	f.Name = "changed"
	f.Params[0] = api.ValueTypeF32
	f.Results = append(f.Results, api.ValueTypeI64)

	again, ok := table.Lookup("lua_pushnumber")
	require.True(t, ok)
	assert.Equal(t, "lua_pushnumber", again.Name)
	assert.Equal(t, want, again.Signature())

	byIndex := table.Field(0)
	byIndex.Params = append(byIndex.Params, api.ValueTypeI32)
	assert.Equal(t, "seal_abi_version", table.Field(0).Name)
	assert.Len(t, table.Field(0).Params, len(byIndex.Params)-1)
}

func TestAPI_Families(t *testing.T) {
	families := map[string][]string{
		"lifecycle": {"luaL_newstate", "lua_close", "lua_newthread", "lua_mainthread", "lua_resetthread", "lua_isthreadreset"},
		"stack": {"lua_absindex", "lua_gettop", "lua_settop", "lua_pushvalue", "lua_remove", "lua_insert",
			"lua_replace", "lua_checkstack", "lua_rawcheckstack", "lua_xmove", "lua_xpush"},
		"inspection": {"lua_isnumber", "lua_isstring", "lua_iscfunction", "lua_isLfunction", "lua_isuserdata",
			"lua_type", "lua_typename", "lua_equal", "lua_rawequal", "lua_lessthan", "lua_tonumberx",
			"lua_tointegerx", "lua_tounsignedx", "lua_toboolean", "lua_tolstring", "lua_objlen",
			"lua_touserdata", "lua_tothread", "lua_topointer"},
		"push": {"lua_pushnil", "lua_pushnumber", "lua_pushinteger", "lua_pushunsigned", "lua_pushlstring",
			"lua_pushstring", "lua_pushcclosurek", "lua_pushboolean", "lua_pushthread"},
		"tables": {"lua_gettable", "lua_getfield", "lua_rawgetfield", "lua_rawget", "lua_rawgeti",
			"lua_createtable", "lua_getmetatable", "lua_getfenv", "lua_newuserdatatagged", "lua_userdatatag",
			"lua_settable", "lua_setfield", "lua_rawsetfield", "lua_rawset", "lua_rawseti",
			"lua_setmetatable", "lua_setfenv", "lua_next", "lua_concat", "lua_cleartable"},
		"invocation": {"luaL_loadbuffer", "lua_call", "lua_pcall", "lua_cpcall", "lua_error"},
		"coroutines": {"lua_yield", "lua_resume", "lua_status", "lua_isyieldable", "lua_costatus"},
		"gc":         {"lua_gc", "lua_setmemcat", "lua_totalbytes"},
		"refs":       {"lua_ref", "lua_unref"},
		"debug": {"lua_stackdepth", "lua_getinfo", "lua_getlocal", "lua_setlocal", "lua_getupvalue",
			"lua_setupvalue", "lua_debugtrace"},
		"checked": {"luaL_checkstack", "luaL_checktype", "luaL_checkany", "luaL_checknumber", "luaL_optnumber",
			"luaL_checkinteger", "luaL_optinteger", "luaL_checkunsigned", "luaL_checkboolean",
			"luaL_optboolean", "luaL_checklstring", "luaL_optlstring", "luaL_checkoption", "luaL_checkudata",
			"luaL_newmetatable", "luaL_getmetafield", "luaL_callmeta", "luaL_argerror", "luaL_typeerror",
			"luaL_where", "luaL_tolstring", "luaL_register", "luaL_findtable"},
		"errors": {"seal_error_wrap", "seal_wrap_function", "seal_log"},
		"adapters": {"lua_pop", "lua_newtable", "lua_newuserdata", "lua_pushcclosure", "lua_pushcfunction",
			"lua_setglobal", "lua_getglobal", "lua_getref", "lua_tonumber", "lua_tointeger", "lua_tostring",
			"lua_isfunction", "lua_istable", "lua_isnil", "lua_isboolean", "lua_isthread", "lua_isnone",
			"lua_isnoneornil", "luaL_getmetatable", "luaL_checkstring", "luaL_optstring", "luaL_typename",
			"lua_pushfstringL", "luaL_errorL"},
	}

	table := abi.API()
	for family, names := range families {
		for _, name := range names {
			_, ok := table.Lookup(name)
			assert.True(t, ok, "%s: missing %s", family, name)
		}
	}
}

func TestField_Signature(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"seal_abi_version", "() -> (i32)"},
		{"lua_settop", "(i32, i32) -> ()"},
		{"lua_tonumberx", "(i32, i32, i32) -> (f64)"},
		{"lua_totalbytes", "(i32, i32) -> (i64)"},
		{"luaL_optnumber", "(i32, i32, f64) -> (f64)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := abi.API().Lookup(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.want, f.Signature())
		})
	}
}
