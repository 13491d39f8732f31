package main

import "food-rescue-backend/cmd"

func main() {
	cmd.Run()
}
