package main

import "github.com/leoprotocol/leoscore/internal/cli"

func main() {
	cli.Execute()
}
