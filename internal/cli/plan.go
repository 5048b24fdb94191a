package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/bembido/video-to-quiz/internal/config"
	"github.com/bembido/video-to-quiz/internal/domain"
	"github.com/bembido/video-to-quiz/internal/segmentation"
	"github.com/bembido/video-to-quiz/internal/timestamp"
	"github.com/spf13/cobra"
)

// NewPlanCmd prints how a video of the given length would be segmented.
func NewPlanCmd(configPath *string) *cobra.Command {
	var target float64
	cmd := &cobra.Command{
		Use:   "plan <duration>",
		Short: "Show the segment plan for a duration (seconds or HH:MM:SS)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("target") {
				target = cfg.Segmentation.TargetSeconds
			}
			duration, err := parseDuration(args[0])
			if err != nil {
				return err
			}
			if max := cfg.Segmentation.MaxDurationSeconds; max > 0 && duration > max {
				return fmt.Errorf("%w: %v exceeds %v seconds", domain.ErrInvalidDuration, duration, max)
			}
			return writePlan(cmd.OutOrStdout(), duration, target)
		},
	}
	cmd.Flags().Float64Var(&target, "target", segmentation.DefaultTargetSeconds, "target segment length in seconds")
	return cmd
}

// parseDuration accepts plain (possibly fractional) seconds or a colon timestamp.
func parseDuration(raw string) (float64, error) {
	if d, err := strconv.ParseFloat(raw, 64); err == nil {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return 0, fmt.Errorf("%w: %q is not finite", domain.ErrInvalidDuration, raw)
		}
		return d, nil
	}
	secs, err := timestamp.Parse(raw)
	if err != nil {
		return 0, err
	}
	return float64(secs), nil
}

func writePlan(out io.Writer, duration, target float64) error {
	segments := segmentation.Split("plan", duration, target)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tSTART\tEND\tTITLE")
	for _, s := range segments {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Index, timestamp.Format(s.StartSeconds), timestamp.Format(s.EndSeconds), s.TopicTitle)
	}
	return tw.Flush()
}
