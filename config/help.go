package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `
ride-hail passenger client

Usage:
  taxi -mode <mode> [-config-path <file>]
  taxi -help

Modes:
  passenger       runs the passenger request engine against a dispatch server and
                  reads commands from stdin
  dispatch-mock   runs an in-memory dispatch server speaking the passenger protocol

Passenger commands:
  login                 sign in with the configured nickname and password
  logout                stop dispatching and drop the session
  pos <lat> <lon>       set the current position (degrees)
  find                  list nearby taxis
  call [phone]          call a taxi, optionally a specific one
  cancel                cancel the current call
  locate                show the passenger position
  taxi                  show the assigned taxi
  status                show the call state
  quit                  exit

Every option can be set in the YAML file or through the environment, e.g.
server.base_url <-> SERVER_BASE_URL. Environment variables win.
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}
