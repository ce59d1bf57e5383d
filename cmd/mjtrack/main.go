package main

import "github.com/mcoot/mahjongtracker/internal/cli"

func main() {
	cli.Execute()
}
