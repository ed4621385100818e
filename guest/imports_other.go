//go:build !wasip1

//nolint:revive // function names follow the imported fields
package guest

import "errors"

// ErrNotWasm is the panic value of State methods outside wasip1 builds.
var ErrNotWasm = errors.New("guest: the native boundary is only available in wasip1 builds")

func lua_gettop(uint32) int32                                 { panic(ErrNotWasm) }
func lua_settop(uint32, int32)                                { panic(ErrNotWasm) }
func lua_pushvalue(uint32, int32)                             { panic(ErrNotWasm) }
func lua_type(uint32, int32) int32                            { panic(ErrNotWasm) }
func lua_tonumber(uint32, int32) float64                      { panic(ErrNotWasm) }
func lua_toboolean(uint32, int32) int32                       { panic(ErrNotWasm) }
func lua_tolstring(uint32, int32, uint32) uint32              { panic(ErrNotWasm) }
func lua_objlen(uint32, int32) int32                          { panic(ErrNotWasm) }
func lua_pushnil(uint32)                                      { panic(ErrNotWasm) }
func lua_pushnumber(uint32, float64)                          { panic(ErrNotWasm) }
func lua_pushinteger(uint32, int32)                           { panic(ErrNotWasm) }
func lua_pushboolean(uint32, int32)                           { panic(ErrNotWasm) }
func lua_pushlstring(uint32, uint32, uint32)                  { panic(ErrNotWasm) }
func lua_pushcclosurek(uint32, uint32, uint32, int32, uint32) { panic(ErrNotWasm) }
func lua_createtable(uint32, int32, int32)                    { panic(ErrNotWasm) }
func lua_getfield(uint32, int32, uint32)                      { panic(ErrNotWasm) }
func lua_setfield(uint32, int32, uint32)                      { panic(ErrNotWasm) }
func lua_rawgeti(uint32, int32, int32)                        { panic(ErrNotWasm) }
func lua_rawseti(uint32, int32, int32)                        { panic(ErrNotWasm) }
func lua_getglobal(uint32, uint32)                            { panic(ErrNotWasm) }
func lua_setglobal(uint32, uint32)                            { panic(ErrNotWasm) }
func lua_call(uint32, int32, int32)                           { panic(ErrNotWasm) }
func lua_pcall(uint32, int32, int32, int32) int32             { panic(ErrNotWasm) }
func lua_error(uint32)                                        { panic(ErrNotWasm) }
func luaL_checktype(uint32, int32, int32)                     { panic(ErrNotWasm) }
func luaL_checkany(uint32, int32)                             { panic(ErrNotWasm) }
func luaL_checknumber(uint32, int32) float64                  { panic(ErrNotWasm) }
func luaL_optnumber(uint32, int32, float64) float64           { panic(ErrNotWasm) }
func luaL_checkinteger(uint32, int32) int32                   { panic(ErrNotWasm) }
func luaL_checklstring(uint32, int32, uint32) uint32          { panic(ErrNotWasm) }
func luaL_argerror(uint32, int32, uint32)                     { panic(ErrNotWasm) }
func seal_error_wrap(uint32, uint32, uint32) int32            { panic(ErrNotWasm) }
func seal_log(uint32, int32, uint32, uint32)                  { panic(ErrNotWasm) }
