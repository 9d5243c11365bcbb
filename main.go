package main

import "github.com/killallgit/transcript-sync/cmd"

func main() {
	cmd.Execute()
}
