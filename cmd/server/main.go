package main

import "scorekeeper/cmd/server/cmd"

func main() {
	cmd.Execute()
}
