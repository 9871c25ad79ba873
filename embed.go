package pubnotion

import (
	"embed"
	"io/fs"
)

// EmbeddedAssets contains the static assets shipped with the site,
// served under /public/ and copied by the static export.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS

func assetsFS() fs.FS {
	sub, err := fs.Sub(EmbeddedAssets, "embedded")
	if err != nil {
		panic(err)
	}
	return sub
}
