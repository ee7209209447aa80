package main

import (
	"flag"
	"log"
	"os"
	"time"

	"go.bug.st/serial"

	"github.com/ballbeam-lab/ballbeam"
	"github.com/ballbeam-lab/ballbeam/panel"
)

func main() {
	var portName string
	flag.StringVar(&portName, "port", "", "Serial port of the beam rig (e.g. /dev/ttyUSB0)")
	flag.Parse()

	if portName == "" {
		log.Fatal("-port is required")
	}

	mode := &serial.Mode{
		BaudRate: ballbeam.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		log.Fatalf("opening %s: %v", portName, err)
	}
	defer port.Close()

	// Short read timeout so the client polls instead of blocking forever.
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		log.Fatalf("setting read timeout: %v", err)
	}

	p := panel.NewPanel(panel.NewClient(port), os.Stdout)
	if err := p.Run(os.Stdin); err != nil {
		log.Fatal(err)
	}
}
