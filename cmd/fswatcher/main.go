package main

import "github.com/robotikz/foodsharing-watcher/cmd"

func main() {
	cmd.Execute()
}
