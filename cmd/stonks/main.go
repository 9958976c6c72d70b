package main

import "github.com/whiterabbit74/stonks-sub003/internal/cli"

func main() {
	cli.Execute()
}
