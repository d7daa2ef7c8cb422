package canhoto

import "strings"

// Only resale operations are tracked; other CFOPs (transfers, returns,
// remessas) never produce a canhoto to chase.
var cfopsRevenda = map[string]bool{
	"5102": true, "5403": true, "5405": true,
	"6102": true, "6108": true, "6403": true, "6404": true,
}

// CFOPElegivel reports whether an invoice with this fiscal operation code is
// accepted for tracking.
func CFOPElegivel(cfop string) bool {
	c := strings.ReplaceAll(strings.TrimSpace(cfop), ".", "")
	return cfopsRevenda[c]
}
