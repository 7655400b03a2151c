package system

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/l1jgo/worldtree/internal/clock"
	"github.com/l1jgo/worldtree/internal/core/event"
	coresys "github.com/l1jgo/worldtree/internal/core/system"
	gonet "github.com/l1jgo/worldtree/internal/net"
	"github.com/l1jgo/worldtree/internal/net/packet"
	"github.com/l1jgo/worldtree/internal/persist"
	"github.com/l1jgo/worldtree/internal/world"
)

type memStore struct {
	digests map[string]bool
	ticks   []uint64
	dumps   []string
	fail    error
}

func (m *memStore) Save(_ context.Context, _ string, tick uint64, dump string) (bool, error) {
	if m.fail != nil {
		return false, m.fail
	}
	d := persist.Digest(dump)
	if m.digests[d] {
		return false, nil
	}
	m.digests[d] = true
	m.ticks = append(m.ticks, tick)
	m.dumps = append(m.dumps, dump)
	return true, nil
}

func steppingClock() *clock.GameClock {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return clock.NewWithSource(func() time.Time {
		now = now.Add(100 * time.Millisecond)
		return now
	})
}

func TestTickPipeline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	f := world.NewFactories()
	w := world.NewWorld("Skyrim")
	defer w.Destroy()
	bus := event.NewBus()
	w.SetBus(bus)

	s, err := w.CreateSector("Whiterun")
	if err != nil {
		t.Fatal(err)
	}
	e, err := s.CreateEntity(f.Entities, "Bannered Mare", "Entity")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.AdoptAction(world.NewCreateAction("Spawn", "Guard", "Action")); err != nil {
		t.Fatal(err)
	}
	if err := s.AdoptAction(world.NewDestroyAction("Kill", "Nobody")); err != nil {
		t.Fatal(err)
	}

	counts := map[string]int{}
	var ticks []uint64
	event.Subscribe(bus, func(ev event.NodeCreated) { counts["created"]++ })
	event.Subscribe(bus, func(ev event.NodeDestroyed) { counts["destroyed"]++ })
	event.Subscribe(bus, func(ev event.SnapshotSaved) { counts["saved"]++ })
	event.Subscribe(bus, func(ev event.TickCompleted) { ticks = append(ticks, ev.Tick) })

	ws := world.NewWorldState(f.Actions)
	store := &memStore{digests: map[string]bool{}}
	runner := coresys.NewRunner()
	runner.Register(NewCleanupSystem(w, log))
	runner.Register(NewPersistenceSystem(w, ws, store, log, 2))
	runner.Register(NewUpdateSystem(w, ws, steppingClock(), log))
	runner.Register(NewEventDispatchSystem(bus))

	for i := 0; i < 3; i++ {
		runner.Tick(100 * time.Millisecond)
	}

	if ws.Tick != 3 || ws.GameTime.TotalGameTime != 300*time.Millisecond {
		t.Errorf("tick %d total %v", ws.Tick, ws.GameTime.TotalGameTime)
	}
	if acts := e.Actions(); len(acts) != 1 || acts[0].Name() != "Guard" {
		t.Errorf("entity actions after create = %d", len(acts))
	}
	if len(s.Actions()) != 0 {
		t.Errorf("destroy action not removed")
	}
	// Sector, Entity and Guard; Spawn and Kill were adopted, not created.
	if counts["created"] != 3 || counts["destroyed"] != 2 || counts["saved"] != 1 {
		t.Errorf("event counts = %v", counts)
	}
	if len(ticks) != 2 || ticks[0] != 1 || ticks[1] != 2 {
		t.Errorf("tick events = %v", ticks)
	}
	if len(store.ticks) != 1 || store.ticks[0] != 2 || store.dumps[0] != w.ToString() {
		t.Errorf("snapshots = %v", store.ticks)
	}
	if logs.FilterMessage("action failed").Len() != 1 {
		t.Errorf("missing target not logged: %v", logs.All())
	}
}

func TestPersistenceSkipsUnchanged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	w := world.NewWorld("Skyrim")
	defer w.Destroy()
	ws := world.NewWorldState(nil)
	store := &memStore{digests: map[string]bool{}}
	p := NewPersistenceSystem(w, ws, store, zap.New(core), 0)

	p.Update(0)
	p.Update(0)
	if len(store.ticks) != 1 {
		t.Errorf("unchanged world saved %d times", len(store.ticks))
	}
	w.SetName("Tamriel")
	p.Save()
	if len(store.ticks) != 2 {
		t.Errorf("renamed world not saved")
	}

	store.fail = errors.New("connection refused")
	p.Save()
	if logs.Len() != 1 {
		t.Errorf("save failure not logged")
	}
}

type fakeSource struct {
	newCh  chan *gonet.Session
	deadCh chan uint64
	dead   []uint64
}

func (f *fakeSource) NewSessions() <-chan *gonet.Session { return f.newCh }
func (f *fakeSource) DeadSessions() <-chan uint64        { return f.deadCh }
func (f *fakeSource) NotifyDead(id uint64)               { f.dead = append(f.dead, id) }

func TestInputSystemDispatches(t *testing.T) {
	log := zaptest.NewLogger(t)
	server, client := net.Pipe()
	defer client.Close()
	sess := gonet.NewSession(server, 3, 4, 4, gonet.Timeouts{}, log)

	src := &fakeSource{newCh: make(chan *gonet.Session, 1), deadCh: make(chan uint64, 1)}
	src.newCh <- sess

	var got []string
	reg := packet.NewRegistry(log)
	reg.Register(packet.C_DUMP, "C_DUMP", []packet.SessionState{packet.StateHandshake}, func(s any, r *packet.Reader) {
		got = append(got, r.ReadS())
	})

	store := gonet.NewSessionStore()
	input := NewInputSystem(src, reg, store, 1, log)

	for _, path := range []string{"Sectors/0", "Sectors/1"} {
		w := packet.NewWriterWithOpcode(packet.C_DUMP)
		w.WriteS(path)
		sess.InQueue <- w.Bytes()
	}

	input.Update(0)
	if store.Count() != 1 || len(got) != 1 {
		t.Fatalf("first tick: %d sessions, handled %v", store.Count(), got)
	}
	input.Update(0)
	if len(got) != 2 || got[1] != "Sectors/1" {
		t.Errorf("handled %v", got)
	}

	// unknown requests are answered with S_ERROR
	sess.InQueue <- []byte{0x7E}
	input.Update(0)
	select {
	case reply := <-sess.OutQueue:
		r := packet.NewReader(reply)
		if r.Opcode() != packet.S_ERROR || r.ReadC() != 0x7E || r.ReadS() == "" {
			t.Errorf("reply = % x", reply)
		}
	default:
		t.Errorf("no error reply")
	}

	sess.Close()
	input.Update(0)
	if store.Count() != 0 || len(src.dead) != 1 || src.dead[0] != 3 {
		t.Errorf("closed session not removed")
	}
}
