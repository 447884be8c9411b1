package main

import "github.com/javanhut/forked/cli"

func main() {
	cli.Execute()
}
