package main

import "github.com/jmehdipour/kuritterweight/cmd"

func main() {
	cmd.Execute()
}
