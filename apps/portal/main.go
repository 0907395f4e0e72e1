package main

import (
	"flag"
	"log"
)

func main() {
	di := flag.String("di", "manual", "dependency wiring: manual | dig")
	flag.Parse()

	switch *di {
	case "manual":
		startManual()
	case "dig":
		startWithDig()
	default:
		log.Fatalf("unknown -di %q", *di)
	}
}
