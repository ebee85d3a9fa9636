package app

import (
	"github.com/specialistvlad/opcompile/internal/registry"
	"github.com/specialistvlad/opcompile/modules/simulated"
	"github.com/specialistvlad/opcompile/modules/socketio"
)

// coreModules is the definitive list of all backend modules that are compiled
// into the opcompile binary.
var coreModules = []registry.Module{
	&simulated.Module{},
	&socketio.Module{},
}
