// Command pimctl activates and deactivates Entra ID directory roles and PIM
// group memberships from the terminal.
package main

import "github.com/Noble-Effeciency13/PIMActivation-sub000/cmd/pimctl/cmd"

func main() {
	cmd.Execute()
}
