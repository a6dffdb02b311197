// register.go wires the sim/halo strategies into the sim package's registration
// variable (NewExchangerFunc). This init() runs when any package imports
// sim/halo, breaking the import cycle between sim/ (interface owner) and
// sim/halo/ (implementation). Test code in package sim uses
// halo_import_test.go for the blank import.
package halo

import "github.com/halo-sim/halo-sim/sim"

func init() {
	sim.NewExchangerFunc = New
}
