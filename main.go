package main

import "github.com/scrideo/scrideo/internal/cli"

func main() {
	cli.Main()
}
