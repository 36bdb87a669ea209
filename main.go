package main

import "github.com/dyike/fupanxia/internal/cli"

func main() {
	cli.Run()
}
