package main

import "gatebench/cmd"

func main() {
	cmd.Execute()
}
