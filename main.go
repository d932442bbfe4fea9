package main

import "github.com/agentic-research/hydronet/cmd"

func main() {
	cmd.Execute()
}
