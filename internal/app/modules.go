package app

import (
	"github.com/gridci/gridci/actions/checkout"
	"github.com/gridci/gridci/actions/coverage"
	"github.com/gridci/gridci/actions/print"
	"github.com/gridci/gridci/actions/shell"
	"github.com/gridci/gridci/internal/registry"
)

// coreModules is the definitive list of all action modules that are compiled
// into the gridci binary.
var coreModules = []registry.Module{
	&checkout.Module{},
	&shell.Module{},
	&print.Module{},
	&coverage.Module{},
}
