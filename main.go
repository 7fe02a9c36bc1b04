package main

import "github.com/timvw/honesty-bench/cmd"

func main() {
	cmd.Execute()
}
