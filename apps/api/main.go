package main

import (
	"log"
)

// The dashboard server. Every dependency is built by the dig container.
func main() {
	startWithDig()
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
