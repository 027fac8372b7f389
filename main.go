package main

import "library-backend/internal/cli"

func main() {
	cli.Execute()
}
