/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import serialsession "github.com/allbin/go-serialsession"

// breakCmd represents the break command
var breakCmd = newOutputCmd("break", "line break",
	`A break holds the transmit line low. The termios backend keeps it asserted
while the port is open; the bugst backend sends a single pulse.`,
	(*serialsession.Session).SetBreak,
	func(out serialsession.OutputSignals) bool { return out.Break },
)

func init() {
	rootCmd.AddCommand(breakCmd)
}
