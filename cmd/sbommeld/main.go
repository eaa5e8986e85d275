// Package main provides the entry point for the sbommeld CLI tool.
package main

import "github.com/sbommeld/sbommeld/cmd/sbommeld/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
