package main

import "github.com/saravenpi/baatcheet/internal/cli"

func main() {
	cli.Execute()
}
