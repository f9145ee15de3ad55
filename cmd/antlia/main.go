// Package main is the antlia command: it serves the site, migrates the
// stores and exports the analytics report.
//
// Usage:
//
//	antlia serve
//	antlia migrate
//	antlia report --format md --out laporan.md
//
// Configuration is read from the environment and an optional .env file.
package main

func main() {
	Execute()
}
