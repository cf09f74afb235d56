package main

import "github.com/jasperwreed/guidera-chat/internal/cli"

func main() {
	cli.Execute()
}
