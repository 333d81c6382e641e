// Grounded on the teacher's cmd/server.go, dropping the --rpc flag and its
// server.RunRPCServer branch: the gRPC surface itself was dropped (see
// DESIGN.md), so this command only ever starts the HTTP API.
package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/eldrix/snomed-terminology/server"
)

var port int

var serverCmd = &cobra.Command{
	Use:   "server <data-dir>",
	Short: "Runs the terminology HTTP server",
	Long:  `The server command runs the terminology engine's HTTP JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := server.New(svc, svc.Logger())
		addr := fmt.Sprintf(":%d", port)
		return http.ListenAndServe(addr, s)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8080, "port to use when running server")
}
