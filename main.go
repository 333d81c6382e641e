package main

import "github.com/eldrix/snomed-terminology/cmd"

// version and build are set via -ldflags at build time, e.g.
//
//	go build -ldflags "-X main.version=1.0.0 -X main.build=$(git rev-parse --short HEAD)"
var (
	version = "dev"
	build   = "unknown"
)

func main() {
	cmd.Execute(version, build)
}
