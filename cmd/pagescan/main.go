package main

import "github.com/MeKo-Tech/pagescan/cmd/pagescan/cmd"

func main() {
	cmd.Execute()
}
