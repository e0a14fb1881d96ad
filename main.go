package main

import "github.com/wkalt/outline/cli/cmd"

func main() {
	cmd.Execute()
}
