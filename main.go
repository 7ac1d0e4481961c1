package main

import "github.com/ammiranda/forest_service/internal/cli"

func main() {
	cli.Execute()
}
