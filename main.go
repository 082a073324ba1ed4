package main

import "github.com/twiced-technology-gmbh/ticketboard/cmd"

func main() {
	cmd.Execute()
}
