// Command cashcat-gateway serves the cashcat financial data tools over JSON-RPC.
package main

import "github.com/cashcat/cashcat-gateway/cmd/cashcat-gateway/cmd"

func main() {
	cmd.Execute()
}
