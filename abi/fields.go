package abi

// fields lists the table in order. Appending keeps the version; any other
// change requires a new Version and ModuleName.
func fields() []Field {
	return []Field{
		{Name: "seal_abi_version", Params: nil, Results: sig(i32), Fn: opABIVersion},
		{Name: "seal_abi_fields", Params: nil, Results: sig(i32), Fn: opABIFields},

		// lifecycle
		{Name: "luaL_newstate", Params: nil, Results: sig(i32), Fn: opNewState},
		{Name: "lua_close", Params: sig(i32), Results: nil, Fn: opClose},
		{Name: "lua_newthread", Params: sig(i32), Results: sig(i32), Fn: opNewThread},
		{Name: "lua_mainthread", Params: sig(i32), Results: sig(i32), Fn: opMainThread},
		{Name: "lua_resetthread", Params: sig(i32), Results: nil, Fn: opResetThread},
		{Name: "lua_isthreadreset", Params: sig(i32), Results: sig(i32), Fn: opIsThreadReset},

		// stack shape
		{Name: "lua_absindex", Params: sig(i32, i32), Results: sig(i32), Fn: opAbsIndex},
		{Name: "lua_gettop", Params: sig(i32), Results: sig(i32), Fn: opGetTop},
		{Name: "lua_settop", Params: sig(i32, i32), Results: nil, Fn: opSetTop},
		{Name: "lua_pushvalue", Params: sig(i32, i32), Results: nil, Fn: opPushValue},
		{Name: "lua_remove", Params: sig(i32, i32), Results: nil, Fn: opRemove},
		{Name: "lua_insert", Params: sig(i32, i32), Results: nil, Fn: opInsert},
		{Name: "lua_replace", Params: sig(i32, i32), Results: nil, Fn: opReplace},
		{Name: "lua_checkstack", Params: sig(i32, i32), Results: sig(i32), Fn: opCheckStack},
		{Name: "lua_rawcheckstack", Params: sig(i32, i32), Results: nil, Fn: opRawCheckStack},
		{Name: "lua_xmove", Params: sig(i32, i32, i32), Results: nil, Fn: opXMove},
		{Name: "lua_xpush", Params: sig(i32, i32, i32), Results: nil, Fn: opXPush},

		// inspection and coercion
		{Name: "lua_isnumber", Params: sig(i32, i32), Results: sig(i32), Fn: opIsNumber},
		{Name: "lua_isstring", Params: sig(i32, i32), Results: sig(i32), Fn: opIsString},
		{Name: "lua_iscfunction", Params: sig(i32, i32), Results: sig(i32), Fn: opIsCFunction},
		{Name: "lua_isLfunction", Params: sig(i32, i32), Results: sig(i32), Fn: opIsLFunction},
		{Name: "lua_isuserdata", Params: sig(i32, i32), Results: sig(i32), Fn: opIsUserdata},
		{Name: "lua_type", Params: sig(i32, i32), Results: sig(i32), Fn: opType},
		{Name: "lua_typename", Params: sig(i32, i32), Results: sig(i32), Fn: opTypeName},
		{Name: "lua_equal", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opEqual},
		{Name: "lua_rawequal", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opRawEqual},
		{Name: "lua_lessthan", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opLessThan},
		{Name: "lua_tonumberx", Params: sig(i32, i32, i32), Results: sig(f64), Fn: opToNumberX},
		{Name: "lua_tointegerx", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opToIntegerX},
		{Name: "lua_tounsignedx", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opToUnsignedX},
		{Name: "lua_toboolean", Params: sig(i32, i32), Results: sig(i32), Fn: opToBoolean},
		{Name: "lua_tolstring", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opToLString},
		{Name: "lua_objlen", Params: sig(i32, i32), Results: sig(i32), Fn: opObjLen},
		{Name: "lua_touserdata", Params: sig(i32, i32), Results: sig(i32), Fn: opToUserdata},
		{Name: "lua_tothread", Params: sig(i32, i32), Results: sig(i32), Fn: opToThread},
		{Name: "lua_topointer", Params: sig(i32, i32), Results: sig(i32), Fn: opToPointer},

		// push
		{Name: "lua_pushnil", Params: sig(i32), Results: nil, Fn: opPushNil},
		{Name: "lua_pushnumber", Params: sig(i32, f64), Results: nil, Fn: opPushNumber},
		{Name: "lua_pushinteger", Params: sig(i32, i32), Results: nil, Fn: opPushInteger},
		{Name: "lua_pushunsigned", Params: sig(i32, i32), Results: nil, Fn: opPushUnsigned},
		{Name: "lua_pushlstring", Params: sig(i32, i32, i32), Results: nil, Fn: opPushLString},
		{Name: "lua_pushstring", Params: sig(i32, i32), Results: nil, Fn: opPushString},
		{Name: "lua_pushcclosurek", Params: sig(i32, i32, i32, i32, i32), Results: nil, Fn: opPushCClosureK},
		{Name: "lua_pushboolean", Params: sig(i32, i32), Results: nil, Fn: opPushBoolean},
		{Name: "lua_pushthread", Params: sig(i32), Results: sig(i32), Fn: opPushThread},

		// tables
		{Name: "lua_gettable", Params: sig(i32, i32), Results: nil, Fn: opGetTable},
		{Name: "lua_getfield", Params: sig(i32, i32, i32), Results: nil, Fn: opGetField},
		{Name: "lua_rawgetfield", Params: sig(i32, i32, i32), Results: nil, Fn: opRawGetField},
		{Name: "lua_rawget", Params: sig(i32, i32), Results: nil, Fn: opRawGet},
		{Name: "lua_rawgeti", Params: sig(i32, i32, i32), Results: nil, Fn: opRawGetI},
		{Name: "lua_createtable", Params: sig(i32, i32, i32), Results: nil, Fn: opCreateTable},
		{Name: "lua_getmetatable", Params: sig(i32, i32), Results: sig(i32), Fn: opGetMetatable},
		{Name: "lua_getfenv", Params: sig(i32, i32), Results: nil, Fn: opGetFEnv},
		{Name: "lua_newuserdatatagged", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opNewUserdataTagged},
		{Name: "lua_userdatatag", Params: sig(i32, i32), Results: sig(i32), Fn: opUserdataTag},
		{Name: "lua_settable", Params: sig(i32, i32), Results: nil, Fn: opSetTable},
		{Name: "lua_setfield", Params: sig(i32, i32, i32), Results: nil, Fn: opSetField},
		{Name: "lua_rawsetfield", Params: sig(i32, i32, i32), Results: nil, Fn: opRawSetField},
		{Name: "lua_rawset", Params: sig(i32, i32), Results: nil, Fn: opRawSet},
		{Name: "lua_rawseti", Params: sig(i32, i32, i32), Results: nil, Fn: opRawSetI},
		{Name: "lua_setmetatable", Params: sig(i32, i32), Results: sig(i32), Fn: opSetMetatable},
		{Name: "lua_setfenv", Params: sig(i32, i32), Results: sig(i32), Fn: opSetFEnv},
		{Name: "lua_next", Params: sig(i32, i32), Results: sig(i32), Fn: opNext},
		{Name: "lua_concat", Params: sig(i32, i32), Results: nil, Fn: opConcat},
		{Name: "lua_cleartable", Params: sig(i32, i32), Results: nil, Fn: opClearTable},

		// invocation
		{Name: "luaL_loadbuffer", Params: sig(i32, i32, i32, i32), Results: sig(i32), Fn: opLoadBuffer},
		{Name: "lua_call", Params: sig(i32, i32, i32), Results: nil, Fn: opCall},
		{Name: "lua_pcall", Params: sig(i32, i32, i32, i32), Results: sig(i32), Fn: opPCall},
		{Name: "lua_cpcall", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opCPCall},
		{Name: "lua_error", Params: sig(i32), Results: nil, Fn: opError},

		// coroutines
		{Name: "lua_yield", Params: sig(i32, i32), Results: sig(i32), Fn: opYield},
		{Name: "lua_resume", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opResume},
		{Name: "lua_status", Params: sig(i32), Results: sig(i32), Fn: opStatus},
		{Name: "lua_isyieldable", Params: sig(i32), Results: sig(i32), Fn: opIsYieldable},
		{Name: "lua_costatus", Params: sig(i32, i32), Results: sig(i32), Fn: opCoStatus},

		// gc and memory accounting
		{Name: "lua_gc", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opGC},
		{Name: "lua_setmemcat", Params: sig(i32, i32), Results: nil, Fn: opSetMemCat},
		{Name: "lua_totalbytes", Params: sig(i32, i32), Results: sig(i64), Fn: opTotalBytes},

		// references
		{Name: "lua_ref", Params: sig(i32, i32), Results: sig(i32), Fn: opRef},
		{Name: "lua_unref", Params: sig(i32, i32), Results: nil, Fn: opUnref},

		// debug
		{Name: "lua_stackdepth", Params: sig(i32), Results: sig(i32), Fn: opStackDepth},
		{Name: "lua_getinfo", Params: sig(i32, i32, i32, i32), Results: sig(i32), Fn: opGetInfo},
		{Name: "lua_getlocal", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opGetLocal},
		{Name: "lua_setlocal", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opSetLocal},
		{Name: "lua_getupvalue", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opGetUpvalue},
		{Name: "lua_setupvalue", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opSetUpvalue},
		{Name: "lua_debugtrace", Params: sig(i32), Results: sig(i32), Fn: opDebugTrace},

		// checked
		{Name: "luaL_checkstack", Params: sig(i32, i32, i32), Results: nil, Fn: opCheckStackL},
		{Name: "luaL_checktype", Params: sig(i32, i32, i32), Results: nil, Fn: opCheckType},
		{Name: "luaL_checkany", Params: sig(i32, i32), Results: nil, Fn: opCheckAny},
		{Name: "luaL_checknumber", Params: sig(i32, i32), Results: sig(f64), Fn: opCheckNumber},
		{Name: "luaL_optnumber", Params: sig(i32, i32, f64), Results: sig(f64), Fn: opOptNumber},
		{Name: "luaL_checkinteger", Params: sig(i32, i32), Results: sig(i32), Fn: opCheckInteger},
		{Name: "luaL_optinteger", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opOptInteger},
		{Name: "luaL_checkunsigned", Params: sig(i32, i32), Results: sig(i32), Fn: opCheckUnsigned},
		{Name: "luaL_checkboolean", Params: sig(i32, i32), Results: sig(i32), Fn: opCheckBoolean},
		{Name: "luaL_optboolean", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opOptBoolean},
		{Name: "luaL_checklstring", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opCheckLString},
		{Name: "luaL_optlstring", Params: sig(i32, i32, i32, i32), Results: sig(i32), Fn: opOptLString},
		{Name: "luaL_checkoption", Params: sig(i32, i32, i32, i32), Results: sig(i32), Fn: opCheckOption},
		{Name: "luaL_checkudata", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opCheckUdata},
		{Name: "luaL_newmetatable", Params: sig(i32, i32), Results: sig(i32), Fn: opNewMetatable},
		{Name: "luaL_getmetafield", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opGetMetafield},
		{Name: "luaL_callmeta", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opCallMeta},
		{Name: "luaL_argerror", Params: sig(i32, i32, i32), Results: nil, Fn: opArgError},
		{Name: "luaL_typeerror", Params: sig(i32, i32, i32), Results: nil, Fn: opTypeError},
		{Name: "luaL_where", Params: sig(i32, i32), Results: nil, Fn: opWhere},
		{Name: "luaL_tolstring", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opToLStringL},
		{Name: "luaL_register", Params: sig(i32, i32, i32), Results: nil, Fn: opRegister},
		{Name: "luaL_findtable", Params: sig(i32, i32, i32, i32), Results: sig(i32), Fn: opFindTable},

		// error protocol and logging
		{Name: "seal_error_wrap", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opErrorWrap},
		{Name: "seal_wrap_function", Params: sig(i32, i32), Results: nil, Fn: opWrapFunction},
		{Name: "seal_log", Params: sig(i32, i32, i32, i32), Results: nil, Fn: opLog},

		// fixed-arity forms of macros and variadic functions
		{Name: "lua_pop", Params: sig(i32, i32), Results: nil, Fn: opPop},
		{Name: "lua_newtable", Params: sig(i32), Results: nil, Fn: opNewTable},
		{Name: "lua_newuserdata", Params: sig(i32, i32), Results: sig(i32), Fn: opNewUserdata},
		{Name: "lua_pushcclosure", Params: sig(i32, i32, i32, i32), Results: nil, Fn: opPushCClosure},
		{Name: "lua_pushcfunction", Params: sig(i32, i32, i32), Results: nil, Fn: opPushCFunction},
		{Name: "lua_setglobal", Params: sig(i32, i32), Results: nil, Fn: opSetGlobal},
		{Name: "lua_getglobal", Params: sig(i32, i32), Results: nil, Fn: opGetGlobal},
		{Name: "lua_getref", Params: sig(i32, i32), Results: nil, Fn: opGetRef},
		{Name: "lua_tonumber", Params: sig(i32, i32), Results: sig(f64), Fn: opToNumber},
		{Name: "lua_tointeger", Params: sig(i32, i32), Results: sig(i32), Fn: opToInteger},
		{Name: "lua_tostring", Params: sig(i32, i32), Results: sig(i32), Fn: opToString},
		{Name: "lua_isfunction", Params: sig(i32, i32), Results: sig(i32), Fn: typeIs(TypeFunction)},
		{Name: "lua_istable", Params: sig(i32, i32), Results: sig(i32), Fn: typeIs(TypeTable)},
		{Name: "lua_isnil", Params: sig(i32, i32), Results: sig(i32), Fn: typeIs(TypeNil)},
		{Name: "lua_isboolean", Params: sig(i32, i32), Results: sig(i32), Fn: typeIs(TypeBoolean)},
		{Name: "lua_isthread", Params: sig(i32, i32), Results: sig(i32), Fn: typeIs(TypeThread)},
		{Name: "lua_isnone", Params: sig(i32, i32), Results: sig(i32), Fn: opIsNone},
		{Name: "lua_isnoneornil", Params: sig(i32, i32), Results: sig(i32), Fn: opIsNoneOrNil},
		{Name: "luaL_getmetatable", Params: sig(i32, i32), Results: nil, Fn: opGetMetatableL},
		{Name: "luaL_checkstring", Params: sig(i32, i32), Results: sig(i32), Fn: opCheckString},
		{Name: "luaL_optstring", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opOptString},
		{Name: "luaL_typename", Params: sig(i32, i32), Results: sig(i32), Fn: opTypeNameL},
		{Name: "lua_pushfstringL", Params: sig(i32, i32, i32), Results: sig(i32), Fn: opPushFStringL},
		{Name: "luaL_errorL", Params: sig(i32, i32, i32), Results: nil, Fn: opErrorL},
	}
}
