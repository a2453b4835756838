// wcmctl is the command-line client for the wcmd connection-manager
// daemon's REST control plane.
package main

import "github.com/dvagner-nxp/wcmd/cmd/wcmctl/commands"

func main() {
	commands.Execute()
}
