package main

import "github.com/jfmyers9/onair/cmd"

func main() {
	cmd.Execute()
}
