// worldconv converts a world document between the XML and YAML element forms.
// The output format follows the output file extension.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/l1jgo/worldtree/internal/parse"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: worldconv <world.xml|world.yaml> <output.yaml>")
		os.Exit(1)
	}
	if err := convert(os.Args[1], os.Args[2]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func convert(in, out string) error {
	switch filepath.Ext(out) {
	case ".yaml", ".yml":
	default:
		return fmt.Errorf("output %s: only .yaml or .yml output is supported", out)
	}

	rec := &parse.Recorder{}
	m := parse.NewMaster(zap.NewNop())
	if err := m.AddHelper(rec); err != nil {
		return err
	}
	if err := m.ParseFile(in); err != nil {
		return err
	}
	if rec.Root() == nil {
		return fmt.Errorf("%s: empty document", in)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := parse.EncodeYAML(f, rec.Root()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}
