package main

import "github.com/yi-nology/photo_bridge/cmd"

func main() {
	cmd.Execute()
}
