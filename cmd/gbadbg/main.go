// Command gbadbg is a Lua-scriptable console for driving a System
// without a window: a script calls sys.loadrom/sys.runfor/sys.read8/
// sys.setkeys to step a ROM through a scripted input sequence, the way
// a regression suite would without a human at the keyboard. With no
// -script it falls back to reading Lua statements from stdin one line
// at a time.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/maemo-arm7/gbacore/internal/gba/system"
)

type cliFlags struct {
	ROMPath string
	BIOS    string
	Script  string
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to ROM (.gba), loaded before the script runs")
	flag.StringVar(&f.BIOS, "bios", "", "optional GBA BIOS image")
	flag.StringVar(&f.Script, "script", "", "Lua script to run; omit for an interactive stdin console")
	flag.Parse()
	return f
}

// registerSys installs the sys.* table the console and any script run
// against, closing over one System instance.
func registerSys(L *lua.LState, sys *system.System) {
	tbl := L.NewTable()

	reg := func(name string, fn lua.LGFunction) { L.SetField(tbl, name, L.NewFunction(fn)) }

	reg("loadrom", func(L *lua.LState) int {
		path := L.CheckString(1)
		data, err := os.ReadFile(path)
		if err != nil {
			L.RaiseError("loadrom: %v", err)
			return 0
		}
		if err := sys.LoadROM(data); err != nil {
			L.RaiseError("loadrom: %v", err)
		}
		return 0
	})

	reg("reset", func(L *lua.LState) int {
		sys.Reset()
		return 0
	})

	reg("runfor", func(L *lua.LState) int {
		sys.RunFor(L.CheckInt(1))
		return 0
	})

	reg("runframes", func(L *lua.LState) int {
		const cyclesPerFrame = 280896
		n := L.CheckInt(1)
		for i := 0; i < n; i++ {
			sys.RunFor(cyclesPerFrame)
		}
		return 0
	})

	reg("read8", func(L *lua.LState) int {
		L.Push(lua.LNumber(sys.Read8(uint32(L.CheckInt64(1)))))
		return 1
	})
	reg("read16", func(L *lua.LState) int {
		L.Push(lua.LNumber(sys.Read16(uint32(L.CheckInt64(1)))))
		return 1
	})
	reg("read32", func(L *lua.LState) int {
		L.Push(lua.LNumber(sys.Read32(uint32(L.CheckInt64(1)))))
		return 1
	})
	reg("write8", func(L *lua.LState) int {
		sys.Write8(uint32(L.CheckInt64(1)), byte(L.CheckInt(2)))
		return 0
	})
	reg("write16", func(L *lua.LState) int {
		sys.Write16(uint32(L.CheckInt64(1)), uint16(L.CheckInt(2)))
		return 0
	})
	reg("write32", func(L *lua.LState) int {
		sys.Write32(uint32(L.CheckInt64(1)), uint32(L.CheckInt(2)))
		return 0
	})

	// setkeys(t) takes a table of button-name -> bool, any omitted key
	// defaults to released.
	reg("setkeys", func(L *lua.LState) int {
		t := L.CheckTable(1)
		held := func(name string) bool {
			return lua.LVAsBool(t.RawGetString(name))
		}
		sys.SetKeys(system.Buttons{
			A: held("a"), B: held("b"), Select: held("select"), Start: held("start"),
			Right: held("right"), Left: held("left"), Up: held("up"), Down: held("down"),
			L: held("l"), R: held("r"),
		})
		return 0
	})

	reg("regs", func(L *lua.LState) int {
		r, cpsr := sys.Registers()
		out := L.NewTable()
		for i, v := range r {
			out.RawSetInt(i, lua.LNumber(v))
		}
		L.SetField(out, "cpsr", lua.LNumber(cpsr))
		L.Push(out)
		return 1
	})

	reg("totalcycles", func(L *lua.LState) int {
		L.Push(lua.LNumber(sys.TotalCycles()))
		return 1
	})

	reg("frameready", func(L *lua.LState) int {
		L.Push(lua.LBool(sys.FrameReady()))
		return 1
	})

	L.SetGlobal("sys", tbl)
}

func runInteractive(L *lua.LState) {
	fmt.Println("gbadbg: Lua console, empty line to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "" {
			return
		}
		if err := L.DoString(line); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func main() {
	f := parseFlags()

	sys := system.New()
	if f.ROMPath != "" {
		rom, err := os.ReadFile(f.ROMPath)
		if err != nil {
			log.Fatalf("read rom: %v", err)
		}
		if err := sys.LoadROM(rom); err != nil {
			log.Fatalf("load rom: %v", err)
		}
	}
	if f.BIOS != "" {
		bios, err := os.ReadFile(f.BIOS)
		if err != nil {
			log.Fatalf("read bios: %v", err)
		}
		sys.LoadBIOS(bios)
	}

	L := lua.NewState()
	defer L.Close()
	registerSys(L, sys)

	if f.Script != "" {
		if err := L.DoFile(f.Script); err != nil {
			log.Fatalf("script error: %v", err)
		}
		return
	}
	runInteractive(L)
}
