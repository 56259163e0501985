package main

import "scorekeeper/cmd/client/cmd"

func main() {
	cmd.Execute()
}
