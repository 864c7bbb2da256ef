package main

import "chainlink-consumer/cmd"

func main() {
	cmd.Execute()
}
