package antlia

import "embed"

// EmbeddedAssets contains the static assets shipped with the site,
// served under /public/antlia/: antlia.css and app.js.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
