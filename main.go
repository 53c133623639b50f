package main

import "github.com/taskmesh/taskmesh/cmd"

func main() {
	cmd.Execute()
}
