// Package loader loads Lua island content into Go structs at startup.
// The Lua VM is discarded after loading; nothing runs Lua during play.
package loader

import (
	"cmp"
	"fmt"
	"slices"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/cosmicisles/engine/rules"
	"github.com/nathoo/cosmicisles/engine/state"
	"github.com/nathoo/cosmicisles/types"
)

// rawIsland holds an island table before compilation.
type rawIsland struct {
	id    string
	table *lua.LTable
	order int // source order, used to break Order ties
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// arrayTables returns the table elements of the array part of tbl.
func arrayTables(tbl *lua.LTable) []*lua.LTable {
	if tbl == nil {
		return nil
	}
	var out []*lua.LTable
	for i := 1; i <= tbl.MaxN(); i++ {
		if t, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			out = append(out, t)
		}
	}
	return out
}

// toGoValue converts a Lua value to a Go value recursively.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LNilType:
		return nil
	case lua.LString:
		return string(val)
	case *lua.LTable:
		maxN := val.MaxN()
		if maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

// compile converts all collected Lua data into a Defs struct. Islands are
// ordered by their order field, then by source order.
func compile(coll *collector) (*state.Defs, error) {
	if coll.game == nil {
		return nil, fmt.Errorf("no Game{} definition found")
	}
	defs := &state.Defs{Game: compileGame(coll.game)}

	raws := slices.Clone(coll.islands)
	slices.SortFunc(raws, func(a, b rawIsland) int {
		if c := cmp.Compare(getInt(a.table, "order"), getInt(b.table, "order")); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})
	for _, raw := range raws {
		isl, err := compileIsland(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling island %s: %w", raw.id, err)
		}
		defs.Islands = append(defs.Islands, isl)
	}
	return defs, nil
}

func compileGame(tbl *lua.LTable) types.GameDef {
	return types.GameDef{
		Title:     getString(tbl, "title"),
		Author:    getString(tbl, "author"),
		Version:   getString(tbl, "version"),
		Intro:     getString(tbl, "intro"),
		MetaQuest: getString(tbl, "meta_quest"),
		MetaBadge: getString(tbl, "meta_badge"),
	}
}

func compileIsland(raw rawIsland) (types.IslandDef, error) {
	tbl := raw.table
	isl := types.IslandDef{
		ID:    raw.id,
		Name:  getString(tbl, "name"),
		Badge: getString(tbl, "badge"),
		Quest: getString(tbl, "quest"),
		Order: getInt(tbl, "order"),
	}
	for i, rt := range arrayTables(getTable(tbl, "rooms")) {
		room, err := compileRoom(rt)
		if err != nil {
			return isl, fmt.Errorf("room %d: %w", i+1, err)
		}
		isl.Rooms = append(isl.Rooms, room)
	}
	return isl, nil
}

func compileRoom(tbl *lua.LTable) (types.RoomDef, error) {
	if err := expectKind(tbl, "room"); err != nil {
		return types.RoomDef{}, err
	}
	room := types.RoomDef{
		ID:          getString(tbl, "id"),
		Name:        getString(tbl, "name"),
		Background:  getString(tbl, "background"),
		Description: getString(tbl, "description"),
	}

	if npc := getTable(tbl, "npc"); npc != nil {
		def, err := compileNPC(npc)
		if err != nil {
			return room, fmt.Errorf("%s: %w", room.ID, err)
		}
		room.NPC = def
	}

	for _, et := range arrayTables(getTable(tbl, "encounters")) {
		enc, err := compileEncounter(et)
		if err != nil {
			return room, fmt.Errorf("%s: %w", room.ID, err)
		}
		room.Encounters = append(room.Encounters, enc)
	}

	if ex := getTable(tbl, "exit"); ex != nil {
		if err := expectKind(ex, "exit"); err != nil {
			return room, fmt.Errorf("%s: %w", room.ID, err)
		}
		pos, err := compileVec(ex.RawGetString("pos"))
		if err != nil {
			return room, fmt.Errorf("%s: exit: %w", room.ID, err)
		}
		room.Exit = types.ExitDef{
			ID:              getString(ex, "id"),
			Name:            getString(ex, "name"),
			Pos:             pos,
			NeedsPermission: getBool(ex, "needs_permission", false),
		}
	}
	return room, nil
}

func compileNPC(tbl *lua.LTable) (types.NPCDef, error) {
	if err := expectKind(tbl, "npc"); err != nil {
		return types.NPCDef{}, err
	}
	pos, err := compileVec(tbl.RawGetString("pos"))
	if err != nil {
		return types.NPCDef{}, fmt.Errorf("npc %s: %w", getString(tbl, "id"), err)
	}
	npc := types.NPCDef{
		ID:   getString(tbl, "id"),
		Name: getString(tbl, "name"),
		Pos:  pos,
	}
	for _, lt := range arrayTables(getTable(tbl, "lines")) {
		line := types.DialogueLine{
			Text:          getString(lt, "text"),
			Reply:         getString(lt, "reply"),
			GrantsPassage: getBool(lt, "grants_passage", false),
		}
		if req := getTable(lt, "requires"); req != nil {
			line.Requires = compileConditions(req)
		}
		npc.Lines = append(npc.Lines, line)
	}
	return npc, nil
}

func compileEncounter(tbl *lua.LTable) (types.EncounterDef, error) {
	kind := types.EncounterKind(getString(tbl, kindKey))
	id := getString(tbl, "id")
	pos, err := compileVec(tbl.RawGetString("pos"))
	if err != nil {
		return types.EncounterDef{}, fmt.Errorf("encounter %s: %w", id, err)
	}
	enc := types.EncounterDef{
		Kind:   kind,
		ItemID: id,
		Name:   getString(tbl, "name"),
		Pos:    pos,
	}

	switch kind {
	case types.EncounterHidden:
		enc.Trigger = getString(tbl, "trigger")
		enc.TriggerName = getString(tbl, "trigger_name")
	case types.EncounterMoving:
		path, err := compilePath(getTable(tbl, "path"))
		if err != nil {
			return enc, fmt.Errorf("encounter %s: %w", id, err)
		}
		enc.Path = path
		enc.Speed = getNumber(tbl, "speed")
		enc.HoverSeconds = getNumber(tbl, "hover")
		if len(path) > 0 && tbl.RawGetString("pos") == lua.LNil {
			enc.Pos = path[0]
		}
	case types.EncounterChoice:
		enc.Options = getInt(tbl, "options")
		enc.Hint = getString(tbl, "hint")
	default:
		return enc, fmt.Errorf("encounter %q: use Hidden, Moving or Choice", id)
	}
	return enc, nil
}

// compileVec accepts {x = 1, y = 2} or {1, 2}. A missing value is the origin.
func compileVec(v lua.LValue) (types.Vec, error) {
	if v == lua.LNil {
		return types.Vec{}, nil
	}
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return types.Vec{}, fmt.Errorf("position must be a table, got %s", v.Type())
	}
	if tbl.MaxN() >= 2 {
		x, xok := tbl.RawGetInt(1).(lua.LNumber)
		y, yok := tbl.RawGetInt(2).(lua.LNumber)
		if !xok || !yok {
			return types.Vec{}, fmt.Errorf("position {x, y} must hold numbers")
		}
		return types.Vec{X: float64(x), Y: float64(y)}, nil
	}
	return types.Vec{X: getNumber(tbl, "x"), Y: getNumber(tbl, "y")}, nil
}

func compilePath(tbl *lua.LTable) ([]types.Vec, error) {
	if tbl == nil {
		return nil, nil
	}
	var path []types.Vec
	for i := 1; i <= tbl.MaxN(); i++ {
		p, err := compileVec(tbl.RawGetInt(i))
		if err != nil {
			return nil, fmt.Errorf("path point %d: %w", i, err)
		}
		path = append(path, p)
	}
	return path, nil
}

func compileConditions(tbl *lua.LTable) []types.Condition {
	var conditions []types.Condition
	for _, ct := range arrayTables(tbl) {
		conditions = append(conditions, compileCondition(ct))
	}
	return conditions
}

func compileCondition(tbl *lua.LTable) types.Condition {
	condType := getString(tbl, "type")

	if condType == rules.CondNot {
		if innerTbl := getTable(tbl, "inner"); innerTbl != nil {
			inner := compileCondition(innerTbl)
			return types.Condition{Type: rules.CondNot, Inner: &inner}
		}
	}

	params := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			key := string(ks)
			if key != "type" {
				params[key] = toGoValue(v)
			}
		}
	})
	return types.Condition{Type: condType, Params: params}
}

// expectKind checks the constructor tag of a nested table.
func expectKind(tbl *lua.LTable, want string) error {
	got := getString(tbl, kindKey)
	if got == "" {
		return fmt.Errorf("expected %s definition, got a plain table", want)
	}
	if got != want {
		return fmt.Errorf("expected %s definition, got %s", want, got)
	}
	return nil
}

// sortedLuaFiles returns .lua files in a directory, with game.lua first
// and the rest sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
