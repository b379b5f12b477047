package loader

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/cosmicisles/engine/rules"
)

// kindKey tags tables built by the curried constructors.
const kindKey = "__kind"

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerConditionHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", ... }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		coll.game = tbl
		return 0
	}))

	// Island "id" { ... } is curried and registers the island.
	L.SetGlobal("Island", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.islands = append(coll.islands, rawIsland{id: id, table: tbl, order: coll.nextSourceOrder()})
			return 0
		}))
		return 1
	}))

	// Room, NPC, Exit and the encounter kinds are curried and return the
	// tagged table so they can be nested inside an Island.
	for name, kind := range map[string]string{
		"Room":   "room",
		"NPC":    "npc",
		"Exit":   "exit",
		"Hidden": "hidden",
		"Moving": "moving",
		"Choice": "choice",
	} {
		L.SetGlobal(name, taggedConstructor(L, kind))
	}

	// Line { text = "...", reply = "...", requires = {...} } is a pass-through.
	L.SetGlobal("Line", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		tbl.RawSetString(kindKey, lua.LString("line"))
		L.Push(tbl)
		return 1
	}))
}

// taggedConstructor returns Kind "id" { ... }, which stamps the table with
// its id and kind and returns it.
func taggedConstructor(L *lua.LState, kind string) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			tbl.RawSetString("id", lua.LString(id))
			tbl.RawSetString(kindKey, lua.LString(kind))
			L.Push(tbl)
			return 1
		}))
		return 1
	})
}

func registerConditionHelpers(L *lua.LState) {
	// ItemFound("item-id")
	L.SetGlobal("ItemFound", L.NewFunction(func(L *lua.LState) int {
		item := L.CheckString(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString(rules.CondItemFound))
		tbl.RawSetString("item", lua.LString(item))
		L.Push(tbl)
		return 1
	}))

	// ItemsPending() and ItemsDone() take no arguments.
	L.SetGlobal("ItemsPending", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString(rules.CondItemsPending))
		L.Push(tbl)
		return 1
	}))
	L.SetGlobal("ItemsDone", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString(rules.CondItemsDone))
		L.Push(tbl)
		return 1
	}))

	// LineComplete("island-id")
	L.SetGlobal("LineComplete", L.NewFunction(func(L *lua.LState) int {
		line := L.CheckString(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString(rules.CondLineComplete))
		tbl.RawSetString("line", lua.LString(line))
		L.Push(tbl)
		return 1
	}))

	// BadgesAtLeast(n)
	L.SetGlobal("BadgesAtLeast", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString(rules.CondBadgesAtLeast))
		tbl.RawSetString("count", lua.LNumber(n))
		L.Push(tbl)
		return 1
	}))

	// Not(condition)
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		inner := L.CheckTable(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString(rules.CondNot))
		tbl.RawSetString("inner", inner)
		L.Push(tbl)
		return 1
	}))
}
