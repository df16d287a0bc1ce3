/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import serialsession "github.com/allbin/go-serialsession"

// dtrCmd represents the dtr command
var dtrCmd = newOutputCmd("dtr", "Data Terminal Ready",
	"The DTR signal indicates that the terminal is ready for communication.",
	(*serialsession.Session).SetDTR,
	func(out serialsession.OutputSignals) bool { return out.DataTerminalReady },
)

func init() {
	rootCmd.AddCommand(dtrCmd)
}
