package testctl

// Indirection layer to allow stubbing in tests

var (
	fnRunGoTests       = runGoTests
	fnRunBlackboxTests = runBlackboxTests

	fnSmoke = runSmoke
	fnLoad  = runLoad
	fnDev   = runDev
)
