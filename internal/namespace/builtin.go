package namespace

import "github.com/vupar/vp-cache/internal/readthrough"

func init() {
	MustRegister(Metadata{
		Key:         readthrough.NamespacePart,
		Description: "Number of part typed cache entries",
		Producer:    "render.Templates",
	})
	MustRegister(Metadata{
		Key:         readthrough.NamespaceMenu,
		Description: "Number of menu typed cache entries",
		Producer:    "render.Templates.Menus",
	})
}
