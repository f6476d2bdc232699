package app

import (
	"github.com/specialistvlad/loopgrid/internal/formula"
	"github.com/specialistvlad/loopgrid/modules/production"
)

// coreModules is the definitive list of all formula modules that are
// compiled into the loopgrid binary.
var coreModules = []formula.Module{
	&production.Module{},
}
