package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"thematic/internal/adapter/quote"
)

var (
	quoteidInteraction string
	quoteidMsg         int
	quoteidChunk       int
	quoteidStart       int
	quoteidEnd         int
)

var quoteidCmd = &cobra.Command{
	Use:   "quoteid",
	Short: "Encode or decode quote identifiers",
	Long: `Quote identifiers have the form
  {interaction_uuid}[:msg_{n}]:ch_{chunk}:{start}-{end}
where start and end are code-point offsets within the chunk.

Examples:
  thematic quoteid decode 123e4567-e89b-12d3-a456-426614174000:ch_2:10-25
  thematic quoteid encode --interaction 123e4567-e89b-12d3-a456-426614174000 --chunk 2 --start 10 --end 25`,
}

var quoteidEncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build a quote id from its parts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := quote.Ref{
			InteractionID: quoteidInteraction,
			ChunkIndex:    quoteidChunk,
			Start:         quoteidStart,
			End:           quoteidEnd,
		}
		if cmd.Flags().Changed("msg") {
			ref.MsgIndex = &quoteidMsg
		}
		id, err := quote.Encode(ref)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var quoteidDecodeCmd = &cobra.Command{
	Use:   "decode <quote-id>",
	Short: "Split a quote id into its parts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := quote.Decode(args[0])
		if err != nil {
			return err
		}
		output, err := json.MarshalIndent(ref, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quoteidCmd)
	quoteidCmd.AddCommand(quoteidEncodeCmd, quoteidDecodeCmd)

	quoteidEncodeCmd.Flags().StringVar(&quoteidInteraction, "interaction", "", "interaction id (required)")
	quoteidEncodeCmd.Flags().IntVar(&quoteidMsg, "msg", 0, "message index within a thread")
	quoteidEncodeCmd.Flags().IntVar(&quoteidChunk, "chunk", 0, "chunk index")
	quoteidEncodeCmd.Flags().IntVar(&quoteidStart, "start", 0, "start offset in code points")
	quoteidEncodeCmd.Flags().IntVar(&quoteidEnd, "end", 0, "end offset in code points (exclusive)")
	quoteidEncodeCmd.MarkFlagRequired("interaction")
	quoteidEncodeCmd.MarkFlagRequired("end")
}
