package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM running script-backed actions.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script under scriptsDir:
// the directory itself first, then its "actions" subdirectory. Missing
// directories are skipped.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "actions")} {
		if err := e.loadDir(dir); err != nil {
			e.vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// NewEngineFromSource creates an engine running a single chunk of Lua.
func NewEngineFromSource(name, source string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.DoString(name, source); err != nil {
		e.vm.Close()
		return nil, err
	}
	return e, nil
}

func newEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, log: log}
}

// loadDir loads all .lua files in a directory in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua in the engine's VM.
func (e *Engine) DoString(name, source string) error {
	fn, err := e.vm.LoadString(source)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	e.vm.Push(fn)
	if err := e.vm.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

// Has reports whether a global Lua function named function exists.
func (e *Engine) Has(function string) bool {
	_, ok := e.vm.GetGlobal(function).(*lua.LFunction)
	return ok
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// ActionContext is the snapshot of one action handed to its update function.
type ActionContext struct {
	Action     string
	Class      string
	Attributes map[string]string
	Tick       uint64
	Elapsed    time.Duration
	Total      time.Duration
}

// CallUpdate calls function(ctx) where ctx is
//
//	{name=, class=, tick=, elapsed_ms=, total_ms=, attrs={...}}
//
// The function may return a table of attribute updates, or nothing.
func (e *Engine) CallUpdate(function string, ctx ActionContext) (map[string]string, error) {
	fn := e.vm.GetGlobal(function)
	if fn == lua.LNil {
		return nil, fmt.Errorf("lua function %s not found", function)
	}

	t := e.vm.NewTable()
	t.RawSetString("name", lua.LString(ctx.Action))
	t.RawSetString("class", lua.LString(ctx.Class))
	t.RawSetString("tick", lua.LNumber(ctx.Tick))
	t.RawSetString("elapsed_ms", lua.LNumber(ctx.Elapsed.Milliseconds()))
	t.RawSetString("total_ms", lua.LNumber(ctx.Total.Milliseconds()))

	attrs := e.vm.NewTable()
	for k, v := range ctx.Attributes {
		attrs.RawSetString(k, lua.LString(v))
	}
	t.RawSetString("attrs", attrs)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		return nil, fmt.Errorf("lua %s: %w", function, err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	switch rt := result.(type) {
	case *lua.LNilType:
		return nil, nil
	case *lua.LTable:
		updates := make(map[string]string)
		rt.ForEach(func(k, v lua.LValue) {
			if key, ok := k.(lua.LString); ok {
				updates[string(key)] = lua.LVAsString(v)
			}
		})
		return updates, nil
	default:
		return nil, fmt.Errorf("lua %s returned %s, want table or nil", function, result.Type())
	}
}
