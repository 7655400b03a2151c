package scripting

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

const innScript = `
function inn_update(ctx)
  local beds = tonumber(ctx.attrs.Beds) or 0
  if ctx.tick % 2 == 0 then
    beds = beds - 1
  end
  return { Beds = tostring(beds), LastTick = ctx.tick, Owner = ctx.attrs.Owner .. "!" }
end

function quiet(ctx)
end

function broken(ctx)
  error("boom")
end

function wrong(ctx)
  return 42
end
`

func TestCallUpdate(t *testing.T) {
	e, err := NewEngineFromSource("inn", innScript, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if !e.Has("inn_update") || e.Has("missing") {
		t.Errorf("Has misreports functions")
	}

	out, err := e.CallUpdate("inn_update", ActionContext{
		Action:     "Upkeep",
		Class:      "InnUpkeep",
		Attributes: map[string]string{"Beds": "10", "Owner": "Hulda"},
		Tick:       4,
		Elapsed:    100 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out["Beds"] != "9" || out["LastTick"] != "4" || out["Owner"] != "Hulda!" {
		t.Errorf("updates = %v", out)
	}

	if out, err := e.CallUpdate("quiet", ActionContext{}); err != nil || out != nil {
		t.Errorf("quiet = %v, %v", out, err)
	}
	if _, err := e.CallUpdate("broken", ActionContext{}); err == nil {
		t.Errorf("lua error not reported")
	}
	if _, err := e.CallUpdate("wrong", ActionContext{}); err == nil {
		t.Errorf("non-table result not reported")
	}
	if _, err := e.CallUpdate("missing", ActionContext{}); err == nil {
		t.Errorf("missing function not reported")
	}
}

func TestNewEngineLoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "actions"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"base.lua":           "function base_fn(ctx) return nil end",
		"actions/greet.lua":  "function greet(ctx) return { Said = 'hi ' .. ctx.name } end",
		"actions/readme.txt": "not lua",
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	e, err := NewEngine(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if !e.Has("base_fn") || !e.Has("greet") {
		t.Fatalf("scripts not loaded")
	}
	out, err := e.CallUpdate("greet", ActionContext{Action: "Hello"})
	if err != nil || out["Said"] != "hi Hello" {
		t.Errorf("greet = %v, %v", out, err)
	}

	if _, err := NewEngine(filepath.Join(dir, "nope"), zaptest.NewLogger(t)); err != nil {
		t.Errorf("missing directory should be skipped: %v", err)
	}
	bad := t.TempDir()
	_ = os.WriteFile(filepath.Join(bad, "bad.lua"), []byte("function ("), 0o644)
	if _, err := NewEngine(bad, zaptest.NewLogger(t)); err == nil {
		t.Errorf("syntax error not reported")
	}
}
