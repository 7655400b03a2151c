package parse

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/l1jgo/worldtree/internal/core/errs"
	"github.com/l1jgo/worldtree/internal/world"
)

const skyrimXML = `<?xml version="1.0" encoding="UTF-8"?>
<world name="Skyrim">
  <sectors>
    <sector name="Whiterun">
      <entities>
        <entity name="Bannered Mare" class="Entity">
          <actions>
            <action name="Init" class="Action">
              <integer name="Capacity" value="10"/>
            </action>
            <action name="Upgrade" class="Action">
              <integer name="Capacity" value="5"/>
            </action>
          </actions>
          <string name="Owner" value="Hulda"/>
          <integer name="Beds" value="10"/>
          <float name="Price" value="20000.5"/>
          <vector name="Location" x="0.5" y="10.2" z="100" w="1"/>
          <matrix name="Transform">
            <vector x="1.2" y="10.2" z="0.005" w="1"/>
            <vector x="3.6" y="102" z="0.01" w="1"/>
            <vector x="1000" y="177.2" z="101" w="1"/>
            <vector x="11" y="13.6" z="100.00035" w="1"/>
          </matrix>
        </entity>
        <entity name="Dragonsreach" class="Entity">
          <string name="Owner" value="Balgruuf the Greater"/>
        </entity>
      </entities>
      <string name="Jarl" value="Balgruuf the Greater"/>
    </sector>
  </sectors>
  <actions>
    <action name="Init" class="CreateAction">
      <string name="InstanceName" value="TestAction"/>
      <string name="ClassName" value="ActionList"/>
    </action>
    <action name="Destroy" class="DestroyAction">
      <string name="InstanceName" value="TestAction"/>
    </action>
  </actions>
  <integer name="Population" value="100000"/>
</world>
`

const skyrimSectors = `"Sectors": [{"Name": "Whiterun", "Entities": [` +
	`{"Name": "Bannered Mare", "Actions": [{"Name": "Init", "Capacity": "10"}, {"Name": "Upgrade", "Capacity": "5"}], ` +
	`"Owner": "Hulda", "Beds": "10", "Price": "20000.5", "Location": "0.5,10.2,100,1", ` +
	`"Transform": "1.2,10.2,0.005,1,3.6,102,0.01,1,1000,177.2,101,1,11,13.6,100.00035,1"}, ` +
	`{"Name": "Dragonsreach", "Owner": "Balgruuf the Greater"}], "Jarl": "Balgruuf the Greater"}]`

const skyrimDump = `{"Name": "Skyrim", ` + skyrimSectors +
	`, "Actions": [{"Name": "Init", "InstanceName": "TestAction", "ClassName": "ActionList"}, {"Name": "Destroy", "InstanceName": "TestAction"}]` +
	`, "Population": "100000"}`

func parseWorld(t *testing.T, parse func(m *Master) error) (*world.World, *Master) {
	t.Helper()
	data := NewWorldData(world.NewFactories())
	m := NewMaster(zaptest.NewLogger(t))
	if err := m.AddHelper(NewWorldHelper(data, zaptest.NewLogger(t))); err != nil {
		t.Fatal(err)
	}
	if err := parse(m); err != nil {
		t.Fatal(err)
	}
	if data.Depth() != 0 || m.Depth() != 0 {
		t.Errorf("depth after parse: data %d master %d", data.Depth(), m.Depth())
	}
	w := data.ExtractWorld()
	if w == nil {
		t.Fatal("no world parsed")
	}
	if data.ExtractWorld() != nil {
		t.Errorf("world extracted twice")
	}
	t.Cleanup(w.Destroy)
	return w, m
}

func TestParseXML(t *testing.T) {
	w, _ := parseWorld(t, func(m *Master) error { return m.Parse(strings.NewReader(skyrimXML)) })
	if got := w.ToString(); got != skyrimDump {
		t.Errorf("dump:\n got %s\nwant %s", got, skyrimDump)
	}
}

func TestParsedWorldUpdates(t *testing.T) {
	f := world.NewFactories()
	w, _ := parseWorld(t, func(m *Master) error { return m.Parse(strings.NewReader(skyrimXML)) })
	ws := world.NewWorldState(f.Actions)
	w.Update(ws)
	if errs := ws.TakeErrors(); len(errs) != 0 {
		t.Fatal(errs)
	}
	w.FlushDestroyQueue()
	want := `{"Name": "Skyrim", ` + skyrimSectors + `, "Population": "100000"}`
	if got := w.ToString(); got != want {
		t.Errorf("after create and destroy:\n got %s\nwant %s", got, want)
	}
}

func TestParseFileByExtension(t *testing.T) {
	dir := t.TempDir()
	xmlPath := filepath.Join(dir, "world.xml")
	if err := os.WriteFile(xmlPath, []byte(skyrimXML), 0o644); err != nil {
		t.Fatal(err)
	}
	w, m := parseWorld(t, func(m *Master) error { return m.ParseFile(xmlPath) })
	if m.FileName() != xmlPath {
		t.Errorf("FileName = %q", m.FileName())
	}

	rec := &Recorder{}
	rm := NewMaster(zaptest.NewLogger(t))
	_ = rm.AddHelper(rec)
	if err := rm.ParseFile(xmlPath); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := EncodeYAML(&buf, rec.Root()); err != nil {
		t.Fatal(err)
	}
	yamlPath := filepath.Join(dir, "world.yaml")
	if err := os.WriteFile(yamlPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	fromYAML, _ := parseWorld(t, func(m *Master) error { return m.ParseFile(yamlPath) })
	if !fromYAML.Equal(w.Tree()) || fromYAML.ToString() != skyrimDump {
		t.Errorf("yaml round trip:\n%s\n%s", buf.String(), fromYAML.ToString())
	}
}

const innYAML = `
element: world
attributes: {name: Skyrim}
children:
  - element: sectors
    children:
      - element: sector
        attributes: {name: Whiterun}
        children:
          - element: entities
            children:
              - element: entity
                attributes: {name: Bannered Mare, class: Entity}
                children:
                  - element: actions
                    children:
                      - element: action
                        attributes: {name: Init, class: Action}
                        children:
                          - element: integer
                            attributes: {name: Capacity, value: 10}
                      - element: action
                        attributes: {name: Upgrade, class: Action}
                        children:
                          - element: integer
                            attributes: {name: Capacity, value: 5}
                  - element: string
                    attributes: {name: Owner, value: Hulda}
                  - element: integer
                    attributes: {value: 10, name: Beds}
`

func TestParseYAML(t *testing.T) {
	w, _ := parseWorld(t, func(m *Master) error { return m.ParseYAML(strings.NewReader(innYAML)) })
	want := `{"Name": "Skyrim", "Sectors": [{"Name": "Whiterun", "Entities": [{"Name": "Bannered Mare", "Actions": [{"Name": "Init", "Capacity": "10"}, {"Name": "Upgrade", "Capacity": "5"}], "Owner": "Hulda", "Beds": "10"}]}]}`
	if got := w.ToString(); got != want {
		t.Errorf("dump:\n got %s\nwant %s", got, want)
	}

	root, err := DecodeYAML(strings.NewReader(innYAML))
	if err != nil {
		t.Fatal(err)
	}
	beds := root.Children[0].Children[0].Children[0].Children[0].Children[2].Attributes
	if names := beds.Names(); len(names) != 2 || names[0] != "value" {
		t.Errorf("attribute order lost: %v", names)
	}
	if _, err := DecodeYAML(strings.NewReader("")); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("empty document: %v", err)
	}
	if _, err := DecodeYAML(strings.NewReader("attributes: {name: x}")); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("nameless element: %v", err)
	}
}

func TestParseLatin1(t *testing.T) {
	doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<world name=\"Caf\xe9\"><string name=\"Motto\" value=\"\xbfQu\xe9?\"/></world>")
	w, _ := parseWorld(t, func(m *Master) error { return m.Parse(bytes.NewReader(doc)) })
	if got, want := w.ToString(), `{"Name": "Café", "Motto": "¿Qué?"}`; got != want {
		t.Errorf("dump = %s, want %s", got, want)
	}

	m := NewMaster(zaptest.NewLogger(t))
	err := m.Parse(strings.NewReader(`<?xml version="1.0" encoding="x-no-such-charset"?><world name="x"/>`))
	if err == nil {
		t.Errorf("unknown charset accepted")
	}
}

func TestInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"world without name", `<world/>`, errs.ErrInvalidArgument},
		{"sector outside list", `<world name="w"><sector name="s"/></world>`, errs.ErrInvalidArgument},
		{"entity in world", `<world name="w"><entities/></world>`, errs.ErrInvalidArgument},
		{"entity without class", `<world name="w"><sectors><sector name="s"><entities><entity name="e"/></entities></sector></sectors></world>`, errs.ErrInvalidArgument},
		{"unknown entity class", `<world name="w"><sectors><sector name="s"><entities><entity name="e" class="Dragon"/></entities></sector></sectors></world>`, errs.ErrNotFound},
		{"unknown action class", `<world name="w"><actions><action name="a" class="Fly"/></actions></world>`, errs.ErrNotFound},
		{"attribute before world", `<integer name="x" value="1"/>`, errs.ErrInvalidArgument},
		{"bad integer", `<world name="w"><integer name="x" value="ten"/></world>`, errs.ErrInvalidArgument},
		{"retyped attribute", `<world name="w"><integer name="x" value="1"/><string name="x" value="a"/></world>`, errs.ErrTypeMismatch},
		{"prescribed name retyped", `<world name="w"><integer name="Name" value="1"/></world>`, errs.ErrTypeMismatch},
		{"short vector", `<world name="w"><vector name="v" x="1" y="2" z="3"/></world>`, errs.ErrInvalidArgument},
		{"short matrix", `<world name="w"><matrix name="m"><vector x="1" y="2" z="3" w="4"/></matrix></world>`, errs.ErrInvalidArgument},
		{"two worlds", `<doc><world name="a"/><world name="b"/></doc>`, errs.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := NewWorldData(world.NewFactories())
			m := NewMaster(zaptest.NewLogger(t))
			_ = m.AddHelper(NewWorldHelper(data, zaptest.NewLogger(t)))
			err := m.Parse(strings.NewReader(tt.doc))
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if w := data.ExtractWorld(); w != nil {
				w.Destroy()
			}
		})
	}
}

func TestUnhandledElementsAreIgnored(t *testing.T) {
	w, _ := parseWorld(t, func(m *Master) error {
		return m.Parse(strings.NewReader(`<doc><meta author="x"/><world name="W"><note>hi</note><integer name="N" value="3"/></world></doc>`))
	})
	if got := w.ToString(); got != `{"Name": "W", "N": "3"}` {
		t.Errorf("dump = %s", got)
	}
}

func TestHelpers(t *testing.T) {
	m := NewMaster(zaptest.NewLogger(t))
	h := NewWorldHelper(NewWorldData(world.NewFactories()), zaptest.NewLogger(t))
	if err := m.AddHelper(h); err != nil {
		t.Fatal(err)
	}
	if err := m.AddHelper(h); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("duplicate helper: %v", err)
	}
	if !m.RemoveHelper(h) || m.RemoveHelper(h) {
		t.Errorf("RemoveHelper misreports")
	}
}

type otherData struct{}

func (otherData) Clone() SharedData { return otherData{} }

type plainHelper struct{}

func (plainHelper) StartElement(string, *Attributes) (bool, error) { return false, nil }
func (plainHelper) EndElement(string) (bool, error)                { return false, nil }

func TestSetSharedData(t *testing.T) {
	f := world.NewFactories()
	data1 := NewWorldData(f)
	m := NewMaster(zaptest.NewLogger(t))
	m.SetSharedData(data1)
	if err := m.AddHelper(NewWorldHelper(NewWorldData(f), zaptest.NewLogger(t))); err != nil {
		t.Fatal(err)
	}
	if err := m.Parse(strings.NewReader(skyrimXML)); err != nil {
		t.Fatal(err)
	}
	w1 := data1.ExtractWorld()
	if w1 == nil || w1.ToString() != skyrimDump {
		t.Fatalf("first document did not land in the shared data")
	}
	defer w1.Destroy()

	data2 := NewWorldData(f)
	m.SetSharedData(data2)
	if err := m.Parse(strings.NewReader(skyrimXML)); err != nil {
		t.Fatal(err)
	}
	w2 := data2.ExtractWorld()
	if w2 == nil || w2.ToString() != skyrimDump {
		t.Fatalf("second document did not land in the new shared data")
	}
	defer w2.Destroy()
	if data1.ExtractWorld() != nil || data1.Depth() != 0 || data2.Depth() != 0 {
		t.Errorf("first data touched by the second document")
	}

	m.SetSharedData(otherData{})
	if err := m.Parse(strings.NewReader(skyrimXML)); !errors.Is(err, errs.ErrTypeMismatch) {
		t.Errorf("foreign shared data: %v", err)
	}
}

func TestClone(t *testing.T) {
	data := NewWorldData(world.NewFactories())
	m := NewMaster(zaptest.NewLogger(t))
	m.SetSharedData(data)
	h := NewWorldHelper(data, zaptest.NewLogger(t))
	if err := m.AddHelper(h); err != nil {
		t.Fatal(err)
	}

	c, err := m.Clone()
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsClone() || m.IsClone() {
		t.Errorf("IsClone misreports")
	}
	if err := c.AddHelper(h); !errors.Is(err, errs.ErrUnsupported) {
		t.Errorf("AddHelper on a clone: %v", err)
	}
	if c.RemoveHelper(h) {
		t.Errorf("RemoveHelper on a clone succeeded")
	}
	cd, ok := c.SharedData().(*WorldData)
	if !ok || cd == data || cd.Depth() != 0 {
		t.Fatalf("clone shared data = %T", c.SharedData())
	}

	if err := c.Parse(strings.NewReader(skyrimXML)); err != nil {
		t.Fatal(err)
	}
	w := cd.ExtractWorld()
	if w == nil || w.ToString() != skyrimDump {
		t.Fatalf("clone did not parse into its own data")
	}
	defer w.Destroy()
	if data.ExtractWorld() != nil {
		t.Errorf("clone wrote into the original data")
	}

	if err := m.AddHelper(plainHelper{}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Clone(); !errors.Is(err, errs.ErrUnsupported) {
		t.Errorf("clone with a plain helper: %v", err)
	}
}

func TestFileInclude(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"main.xml": `<world name="Skyrim"><sectors><sector name="Whiterun"><entities>` +
			`<file path="inns/mare.yaml"/></entities></sector></sectors></world>`,
		"inns/mare.yaml": "element: entity\nattributes: {name: Bannered Mare, class: Entity}\n" +
			"children:\n  - element: file\n    attributes: {path: owner.xml}\n",
		"inns/owner.xml": `<string name="Owner" value="Hulda"/>`,
		"loop.xml":       `<world name="L"><file path="loop2.xml"/></world>`,
		"loop2.xml":      `<file path="loop2.xml"/>`,
	}
	for name, body := range files {
		p := filepath.Join(dir, name)
		_ = os.MkdirAll(filepath.Dir(p), 0o755)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w, err := LoadWorld(filepath.Join(dir, "main.xml"), world.NewFactories(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Destroy()
	want := `{"Name": "Skyrim", "Sectors": [{"Name": "Whiterun", "Entities": [{"Name": "Bannered Mare", "Owner": "Hulda"}]}]}`
	if got := w.ToString(); got != want {
		t.Errorf("dump = %s", got)
	}

	if _, err := LoadWorld(filepath.Join(dir, "loop.xml"), world.NewFactories(), zaptest.NewLogger(t)); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Errorf("include loop: %v", err)
	}
	if _, err := LoadWorld(filepath.Join(dir, "inns/owner.xml"), world.NewFactories(), zaptest.NewLogger(t)); err == nil {
		t.Errorf("document without a world loaded")
	}
}
