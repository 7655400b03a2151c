package parse

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/worldtree/internal/core/errs"
	"github.com/l1jgo/worldtree/internal/world"
)

// LoadWorld parses the world document at path with classes from f. A
// document that fails part way leaves nothing behind.
func LoadWorld(path string, f *world.Factories, log *zap.Logger) (*world.World, error) {
	data := NewWorldData(f)
	m := NewMaster(log)
	m.SetSharedData(data)
	if err := m.AddHelper(NewWorldHelper(data, log)); err != nil {
		return nil, err
	}
	err := m.ParseFile(path)
	w := data.ExtractWorld()
	if err != nil {
		if w != nil {
			w.Destroy()
		}
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("%s: %w: no <world> element", path, errs.ErrInvalidArgument)
	}
	log.Info("world loaded",
		zap.String("file", path),
		zap.String("world", w.Name()),
		zap.Int("nodes", w.Arena().Live()),
	)
	return w, nil
}
