// Command chainscaffold builds and mock-proves a sample claim over live
// chain data: that a block's timestamp exceeds a threshold. It fetches a
// header window from an execution-layer endpoint, commits to it, imports
// the target header and exposes the block number and the comparison result
// as the public instance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/verity-zk/chainscaffold"
	"github.com/verity-zk/chainscaffold/driver"
	"github.com/verity-zk/chainscaffold/provider"
)

var (
	rpcURL    string
	network   string
	degree    int
	block     uint64
	window    uint64
	threshold uint64
	exportTo  string
)

var rootCmd = &cobra.Command{
	Use:   "chainscaffold",
	Short: "Build circuits over attested chain data",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.HelpFunc()(cmd, args)
	},
}

var proveCmd = &cobra.Command{
	Use:   "prove",
	Short: "Mock-prove that a block's timestamp exceeds a threshold",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return prove(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(proveCmd)
	proveCmd.Flags().StringVar(&rpcURL, "rpc", "", "Execution-layer RPC endpoint.")
	proveCmd.Flags().StringVar(&network, "network", "mainnet", "Network tag for logs and artifacts.")
	proveCmd.Flags().IntVar(&degree, "degree", 0, "Circuit degree; rows are 2^degree. 0 picks the default.")
	proveCmd.Flags().Uint64Var(&block, "block", 0, "Block number the claim is about.")
	proveCmd.Flags().Uint64Var(&window, "window", 16, "Number of consecutive headers to attest, starting at --block.")
	proveCmd.Flags().Uint64Var(&threshold, "threshold", 0, "Timestamp the block must be strictly later than.")
	proveCmd.Flags().StringVar(&exportTo, "export", "", "Write the proving artifact to this file.")
	proveCmd.MarkFlagRequired("block")

	viper.SetEnvPrefix("chainscaffold")
	viper.AutomaticEnv()
	viper.BindPFlag("rpc", proveCmd.Flags().Lookup("rpc"))
	viper.BindPFlag("degree", proveCmd.Flags().Lookup("degree"))
	viper.BindPFlag("network", proveCmd.Flags().Lookup("network"))
}

func prove(ctx context.Context) error {
	rpc := viper.GetString("rpc")
	if rpc == "" {
		return fmt.Errorf("no endpoint: pass --rpc or set CHAINSCAFFOLD_RPC")
	}
	if window == 0 {
		window = 1
	}

	client, err := provider.Dial(ctx, rpc)
	if err != nil {
		return err
	}
	defer client.Close()
	archive, err := client.FetchRange(ctx, block, block+window-1)
	if err != nil {
		return err
	}

	s := chainscaffold.New(chainscaffold.Config{
		Degree:  viper.GetInt("degree"),
		Network: viper.GetString("network"),
	}, archive)
	hdr, err := s.ImportHeader(block)
	if err != nil {
		return err
	}
	ok, err := s.TimestampAfter(hdr, threshold)
	if err != nil {
		return err
	}
	if err := s.MarkPublic(hdr.NumberCell()); err != nil {
		return err
	}
	if err := s.MarkPublic(ok); err != nil {
		return err
	}

	compiled, err := s.Compile()
	if err != nil {
		return err
	}
	bundle, err := compiled.Assign()
	if err != nil {
		return err
	}
	proof, err := driver.Mock{}.Prove(ctx, bundle)
	if err != nil {
		return err
	}

	if exportTo != "" {
		artifact, err := driver.NewArtifact(bundle)
		if err != nil {
			return err
		}
		raw, err := artifact.MarshalBinary()
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportTo, raw, 0o644); err != nil {
			return err
		}
		fmt.Printf("artifact written to %s (%d bytes)\n", exportTo, len(raw))
	}

	fmt.Printf("block %s timestamp > %d: %s\n", proof.Public[0].String(), threshold, proof.Public[1].String())
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
