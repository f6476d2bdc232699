package app_test

import (
	"github.com/specialistvlad/loopgrid/internal/config"
	"github.com/specialistvlad/loopgrid/internal/hcl_adapter"
)

func hclLoader() config.Loader {
	return hcl_adapter.NewLoader()
}
