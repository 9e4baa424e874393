package main

import "github.com/encodeous/moss/cmd"

func main() {
	cmd.Execute()
}
