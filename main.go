package main

import "github.com/HaiFongPan/rbrowse/cmd"

func main() {
	cmd.Execute()
}
