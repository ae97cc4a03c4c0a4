package main

import (
	"log"

	"github.com/campus-safety/dispatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
