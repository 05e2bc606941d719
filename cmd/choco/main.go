package main

import "choco-cli/internal/cli"

func main() {
	cli.Execute()
}
