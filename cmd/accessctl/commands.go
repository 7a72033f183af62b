package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/acgh213/promptvault/internal/access"
)

func newRootCmd() *cobra.Command {
	var tiersFile string

	root := &cobra.Command{
		Use:           "accessctl",
		Short:         "Inspect tier tables and content gating",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&tiersFile, "tiers", os.Getenv("TIERS_FILE"),
		"tier table YAML (default: built-in table)")

	load := func() (*access.Policy, error) {
		return access.LoadPolicy(tiersFile)
	}

	root.AddCommand(newValidateCmd(load), newPreviewCmd(load), newCanCmd(load))
	return root
}

type policyLoader func() (*access.Policy, error)

func newValidateCmd(load policyLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load a tier table and print it lowest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := load()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tID\tLABEL\tPREVIEW")
			for i, t := range policy.Tiers() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d%%\n", i, t.ID, t.Label, t.PreviewPercent)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "suffix: %q\n", policy.Suffix())
			return nil
		},
	}
}

func newPreviewCmd(load policyLoader) *cobra.Command {
	var as, required, file string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print what a reader at one tier sees of a body",
		Long: `Print what a reader at one tier sees of a body.

The body is read from --file, or from stdin when --file is omitted.

Examples:
  accessctl preview --as free --required elite --file prompt.md
  echo "one two three" | accessctl preview --as architect --required initiate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := load()
			if err != nil {
				return err
			}
			requester, requiredTier, err := parsePair(policy, as, required)
			if err != nil {
				return err
			}

			body, err := readBody(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			decision, err := policy.GetAccessibleContent(body, requester, requiredTier)
			if err != nil {
				return err
			}
			msg, err := policy.UpgradeMessage(requester, requiredTier)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "full access: %t\n", decision.HasFullAccess)
			if msg != "" {
				fmt.Fprintf(out, "upgrade: %s\n", msg)
			}
			fmt.Fprintln(out, "---")
			fmt.Fprint(out, decision.RenderedText)
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "reader tier")
	cmd.Flags().StringVar(&required, "required", "", "tier the content requires")
	cmd.Flags().StringVar(&file, "file", "", "body file (default: stdin)")
	_ = cmd.MarkFlagRequired("as")
	_ = cmd.MarkFlagRequired("required")
	return cmd
}

func newCanCmd(load policyLoader) *cobra.Command {
	var as, required string

	cmd := &cobra.Command{
		Use:   "can",
		Short: "Report whether one tier may read content gated at another",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := load()
			if err != nil {
				return err
			}
			requester, requiredTier, err := parsePair(policy, as, required)
			if err != nil {
				return err
			}
			ok, err := policy.CanAccess(requester, requiredTier)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(cmd.OutOrStdout(), "yes: %s may read %s content\n", requester, requiredTier)
				return nil
			}
			msg, err := policy.UpgradeMessage(requester, requiredTier)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "no: %s\n", msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "reader tier")
	cmd.Flags().StringVar(&required, "required", "", "tier the content requires")
	_ = cmd.MarkFlagRequired("as")
	_ = cmd.MarkFlagRequired("required")
	return cmd
}

func parsePair(policy *access.Policy, as, required string) (access.Tier, access.Tier, error) {
	requester, err := policy.ParseTier(as)
	if err != nil {
		return "", "", fmt.Errorf("--as: %w", err)
	}
	requiredTier, err := policy.ParseTier(required)
	if err != nil {
		return "", "", fmt.Errorf("--required: %w", err)
	}
	return requester, requiredTier, nil
}

func readBody(stdin io.Reader, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
