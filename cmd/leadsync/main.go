// Package main provides the entry point for the leadsync CLI.
package main

import "leadsync/cmd/leadsync/cmd"

func main() {
	cmd.Execute()
}
