package main

import "github.com/stephnangue/fedgate/cmd"

func main() {
	cmd.Execute()
}
