package sim_test

// Blank import triggers sim/halo's init(), which registers NewExchangerFunc.
// This allows package sim's internal test files to build workers without
// directly importing sim/halo (which would create an import cycle).
import _ "github.com/halo-sim/halo-sim/sim/halo"
