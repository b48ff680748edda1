package main

import "users-service/cmd"

func main() {
	cmd.Execute()
}
