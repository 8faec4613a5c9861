package sntp

// Kiss-o'-Death code classification. A stratum-0 response
// carries a four-letter code in its reference-identifier field instead of
// a clock name; the code tells the client whether the whole cluster is
// presumed bad (halting) or whether it's worth trying another address
// (non-halting).
var haltingKissCodes = map[string]bool{
	"ACST": true, "AUTH": true, "AUTO": true, "BCST": true,
	"CRYP": true, "DENY": true, "DROP": true, "RSTR": true,
	"MCST": true, "NKEY": true, "RATE": true, "RMOT": true,
}

var nonHaltingKissCodes = map[string]bool{
	"INIT": true, "STEP": true,
}

// classifyKissCode reports whether code is a known halting or non-halting
// kiss code. known is false for any code outside both tables, which
// treats as a halting UnknownKissCode failure.
func classifyKissCode(code string) (halting bool, known bool) {
	if haltingKissCodes[code] {
		return true, true
	}
	if nonHaltingKissCodes[code] {
		return false, true
	}
	return false, false
}
