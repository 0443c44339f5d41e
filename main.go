package main

import "github.com/jjenkins/statehouse/cmd"

func main() {
	cmd.Execute()
}
