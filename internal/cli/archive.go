package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/probst/tangle/internal/archive"
	"github.com/probst/tangle/internal/key"
	"github.com/probst/tangle/internal/payload"
)

// ArchiveOptions holds flags shared by the archive subcommands.
type ArchiveOptions struct {
	*RootOptions
	Database string
}

// ArchiveKeyInfo describes one archived component in a listing.
type ArchiveKeyInfo struct {
	Key       string `json:"key"`
	Revisions int    `json:"revisions"`
	Latest    int64  `json:"latest"`
}

// ArchiveShowResult holds one revision's payload and metadata.
type ArchiveShowResult struct {
	Key      string            `json:"key"`
	Revision int64             `json:"revision"`
	Payload  payload.Value     `json:"payload"`
	Digest   string            `json:"digest"`
	History  []ArchiveRevision `json:"history,omitempty"`
}

// ArchiveRevision is one history row.
type ArchiveRevision struct {
	Revision int64  `json:"revision"`
	Codec    string `json:"codec"`
	Digest   string `json:"digest"`
	SavedSeq int64  `json:"saved_seq"`
}

// NewArchiveCommand creates the archive command group.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect a component archive",
	}
	cmd.AddCommand(newArchiveLsCommand(rootOpts))
	cmd.AddCommand(newArchiveShowCommand(rootOpts))
	return cmd
}

func newArchiveLsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArchiveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List archived component keys",
		Long: `List every component key the archive holds, with its revision count
and latest revision number.

Examples:
  tangle archive ls --db ./editor.db
  tangle archive ls --db ./editor.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveLs(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to archive database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runArchiveLs(opts *ArchiveOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	a, err := archive.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open archive", err)
	}
	defer a.Close()

	keys, err := a.Keys(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list keys", err)
	}

	infos := make([]ArchiveKeyInfo, 0, len(keys))
	for _, k := range keys {
		hist, err := a.History(ctx, k)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read history of %q", k), err)
		}
		infos = append(infos, ArchiveKeyInfo{
			Key:       string(k),
			Revisions: len(hist),
			Latest:    hist[len(hist)-1].Revision,
		})
	}

	if opts.Format == "json" {
		return outputJSON(cmd, infos)
	}

	w := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(w, "archive holds no components")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(w, "%s  (%d revision(s), latest %d)\n", info.Key, info.Revisions, info.Latest)
	}
	return nil
}

func newArchiveShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArchiveOptions{RootOptions: rootOpts}
	var keyName string
	var revision int64

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show an archived component revision",
		Long: `Print one archived component as canonical JSON, with its content
digest. Without --revision the latest revision is shown. With --verbose
the full revision history is included.

Examples:
  tangle archive show --db ./editor.db --key doc.graph
  tangle archive show --db ./editor.db --key doc.graph --revision 2
  tangle archive show --db ./editor.db --key doc.graph --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveShow(opts, cmd, key.Key(keyName), revision)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to archive database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&keyName, "key", "", "component key (required)")
	_ = cmd.MarkFlagRequired("key")
	cmd.Flags().Int64Var(&revision, "revision", 0, "revision to show (default latest)")

	return cmd
}

func runArchiveShow(opts *ArchiveOptions, cmd *cobra.Command, k key.Key, revision int64) error {
	ctx := context.Background()

	a, err := archive.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open archive", err)
	}
	defer a.Close()

	var v payload.Value
	var rev int64
	if revision > 0 {
		v, rev, err = a.LoadRevision(ctx, k, revision)
	} else {
		v, rev, err = a.LoadComponent(ctx, k)
	}
	if err != nil {
		if archive.IsNotFound(err) {
			return WrapExitError(ExitCommandError, "component not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to load component", err)
	}

	digest, err := payload.ComponentDigest(v)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest component", err)
	}

	result := ArchiveShowResult{
		Key:      string(k),
		Revision: rev,
		Payload:  v,
		Digest:   digest,
	}
	if opts.Verbose {
		hist, err := a.History(ctx, k)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read history", err)
		}
		for _, r := range hist {
			result.History = append(result.History, ArchiveRevision{
				Revision: r.Revision,
				Codec:    r.Codec,
				Digest:   r.Digest,
				SavedSeq: r.SavedSeq,
			})
		}
	}

	if opts.Format == "json" {
		return outputJSON(cmd, result)
	}

	w := cmd.OutOrStdout()
	canonical, err := payload.MarshalCanonical(v)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to serialize component", err)
	}
	fmt.Fprintf(w, "%s @ revision %d\n", k, rev)
	fmt.Fprintf(w, "digest: %s\n", digest)
	fmt.Fprintf(w, "%s\n", canonical)
	if opts.Verbose {
		fmt.Fprintln(w, "history:")
		for _, r := range result.History {
			fmt.Fprintf(w, "  rev %d  codec=%s  seq=%d  %s\n", r.Revision, r.Codec, r.SavedSeq, r.Digest)
		}
	}
	return nil
}
