package main

import "cull/cmd"

func main() {
	cmd.Execute()
}
