// Package main is the entry point for duplicity-runner.
package main

import (
	"github.com/sharkusmanch/duplicity-runner/internal/cli"
)

func main() {
	cli.Execute()
}
