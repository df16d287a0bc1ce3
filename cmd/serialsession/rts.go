/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import serialsession "github.com/allbin/go-serialsession"

// rtsCmd represents the rts command
var rtsCmd = newOutputCmd("rts", "Request To Send",
	"The RTS signal can be used for software flow control or custom signaling.",
	(*serialsession.Session).SetRTS,
	func(out serialsession.OutputSignals) bool { return out.RequestToSend },
)

func init() {
	rootCmd.AddCommand(rtsCmd)
}
