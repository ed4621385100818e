//go:build wasip1

//nolint:revive // function names follow the imported fields
package guest

//go:wasmimport seal_abi_v1 lua_gettop
func lua_gettop(L uint32) int32

//go:wasmimport seal_abi_v1 lua_settop
func lua_settop(L uint32, idx int32)

//go:wasmimport seal_abi_v1 lua_pushvalue
func lua_pushvalue(L uint32, idx int32)

//go:wasmimport seal_abi_v1 lua_type
func lua_type(L uint32, idx int32) int32

//go:wasmimport seal_abi_v1 lua_tonumber
func lua_tonumber(L uint32, idx int32) float64

//go:wasmimport seal_abi_v1 lua_toboolean
func lua_toboolean(L uint32, idx int32) int32

//go:wasmimport seal_abi_v1 lua_tolstring
func lua_tolstring(L uint32, idx int32, lenPtr uint32) uint32

//go:wasmimport seal_abi_v1 lua_objlen
func lua_objlen(L uint32, idx int32) int32

//go:wasmimport seal_abi_v1 lua_pushnil
func lua_pushnil(L uint32)

//go:wasmimport seal_abi_v1 lua_pushnumber
func lua_pushnumber(L uint32, n float64)

//go:wasmimport seal_abi_v1 lua_pushinteger
func lua_pushinteger(L uint32, n int32)

//go:wasmimport seal_abi_v1 lua_pushboolean
func lua_pushboolean(L uint32, b int32)

//go:wasmimport seal_abi_v1 lua_pushlstring
func lua_pushlstring(L uint32, s uint32, n uint32)

//go:wasmimport seal_abi_v1 lua_pushcclosurek
func lua_pushcclosurek(L uint32, fn uint32, debugname uint32, nup int32, cont uint32)

//go:wasmimport seal_abi_v1 lua_createtable
func lua_createtable(L uint32, narr int32, nrec int32)

//go:wasmimport seal_abi_v1 lua_getfield
func lua_getfield(L uint32, idx int32, k uint32)

//go:wasmimport seal_abi_v1 lua_setfield
func lua_setfield(L uint32, idx int32, k uint32)

//go:wasmimport seal_abi_v1 lua_rawgeti
func lua_rawgeti(L uint32, idx int32, n int32)

//go:wasmimport seal_abi_v1 lua_rawseti
func lua_rawseti(L uint32, idx int32, n int32)

//go:wasmimport seal_abi_v1 lua_getglobal
func lua_getglobal(L uint32, name uint32)

//go:wasmimport seal_abi_v1 lua_setglobal
func lua_setglobal(L uint32, name uint32)

//go:wasmimport seal_abi_v1 lua_call
func lua_call(L uint32, nargs int32, nresults int32)

//go:wasmimport seal_abi_v1 lua_pcall
func lua_pcall(L uint32, nargs int32, nresults int32, errfunc int32) int32

//go:wasmimport seal_abi_v1 lua_error
func lua_error(L uint32)

//go:wasmimport seal_abi_v1 luaL_checktype
func luaL_checktype(L uint32, narg int32, t int32)

//go:wasmimport seal_abi_v1 luaL_checkany
func luaL_checkany(L uint32, narg int32)

//go:wasmimport seal_abi_v1 luaL_checknumber
func luaL_checknumber(L uint32, narg int32) float64

//go:wasmimport seal_abi_v1 luaL_optnumber
func luaL_optnumber(L uint32, narg int32, def float64) float64

//go:wasmimport seal_abi_v1 luaL_checkinteger
func luaL_checkinteger(L uint32, narg int32) int32

//go:wasmimport seal_abi_v1 luaL_checklstring
func luaL_checklstring(L uint32, narg int32, lenPtr uint32) uint32

//go:wasmimport seal_abi_v1 luaL_argerror
func luaL_argerror(L uint32, narg int32, extramsg uint32)

//go:wasmimport seal_abi_v1 seal_error_wrap
func seal_error_wrap(L uint32, msg uint32, n uint32) int32

//go:wasmimport seal_abi_v1 seal_log
func seal_log(L uint32, level int32, msg uint32, n uint32)
