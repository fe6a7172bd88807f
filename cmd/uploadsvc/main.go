package main

import "uploadsvc/internal/cmd"

func main() {
	cmd.Execute()
}
