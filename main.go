package main

import "github.com/relloyd/dbcop/cmd"

func main() {
	cmd.Execute()
}
