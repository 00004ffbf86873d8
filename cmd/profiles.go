package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"video-trimmer/domain/media"
	"video-trimmer/infrastructure/ffmpeg"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List export formats and whether they are available",
	RunE:  runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	return RunProfilesWithDependencies(cmd.Context(), newDetector(cfg), cmd.OutOrStdout())
}

// CapabilityDetector reports what the local ffmpeg can do
type CapabilityDetector interface {
	Capabilities(ctx context.Context) *ffmpeg.Capabilities
}

// RunProfilesWithDependencies runs the profiles command with injected dependencies (for testing)
func RunProfilesWithDependencies(ctx context.Context, detector CapabilityDetector, output io.Writer) error {
	caps := detector.Capabilities(ctx)

	w := tabwriter.NewWriter(output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FORMAT\tCODEC\tMIME TYPE\tAVAILABLE")
	for _, p := range media.Profiles() {
		status := "yes"
		if err := caps.Check(p); err != nil {
			status = "no (" + err.Error() + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Label(), p.Codec(), p.MimeType(), status)
	}
	return w.Flush()
}

// Ensure Detector satisfies the command interfaces
var (
	_ CapabilityDetector = (*ffmpeg.Detector)(nil)
	_ Verifier           = (*ffmpeg.Detector)(nil)
)
