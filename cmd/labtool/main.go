package main

import "github.com/roman-kulish/labtool/cmd/labtool/cmd"

func main() {
	cmd.Execute()
}
