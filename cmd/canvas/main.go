package main

import "github.com/emrgen/canvas/cmd"

func main() {
	cmd.Execute()
}
