package testctl

import "context"

// Tests
func runGoTests() error {
	info("==== Run Go tests ====")
	return runCmdStreaming(context.Background(), "go", "test", "./...")
}

func runBlackboxTests() error {
	info("==== Run blackbox tests (builds the binary) ====")
	return runCmdStreaming(context.Background(), "go", "test", "-v", "./tests/blackbox/...")
}
