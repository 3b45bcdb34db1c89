package main

import "auxdeck/internal/cli"

func main() {
	cli.Execute()
}
