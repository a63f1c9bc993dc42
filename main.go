package main

import "github.com/assignment-tracker/apiserver/cmd"

func main() {
	cmd.Execute()
}
