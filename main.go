package main

import "github.com/mkudasov/soltrader/cmd"

func main() {
	cmd.Execute()
}
