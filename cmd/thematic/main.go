package main

import "thematic/internal/cli"

func main() {
	cli.Execute()
}
