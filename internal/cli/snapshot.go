package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/simtree/internal/harness"
	"github.com/roach88/simtree/internal/ir"
	"github.com/roach88/simtree/internal/registry"
	"github.com/roach88/simtree/internal/store"
)

// SnapshotOptions holds flags shared by the snapshot subcommands.
type SnapshotOptions struct {
	*RootOptions
	DBPath string
	Label  string
	Record string
	Since  int64
}

// SnapshotInfo is the JSON form of a stored snapshot.
type SnapshotInfo struct {
	ID          string `json:"id"`
	Seq         int64  `json:"seq"`
	Record      string `json:"record"`
	MetadataKey string `json:"metadata_key"`
	ContentHash string `json:"content_hash"`
	Label       string `json:"label,omitempty"`
	Value       string `json:"value,omitempty"`
}

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Store and inspect record snapshots",
		Long: `Store record instances in the SQLite snapshot store and read them back.

Snapshots are keyed by a content hash of the whole record and indexed by the
hash of its static metadata, so records that share a structure can be found
together. The database path comes from store.path in the config unless --db
is given.`,
	}
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "snapshot database (overrides store.path)")

	save := &cobra.Command{
		Use:           "save <scenario.yaml>",
		Short:         "Build a scenario's instance record and store it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotSave(opts, args[0], cmd)
		},
	}
	save.Flags().StringVar(&opts.Label, "label", "", "free-form label stored with the snapshot")

	show := &cobra.Command{
		Use:           "show <schema> <id>",
		Short:         "Load a snapshot and print its record",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotShow(opts, args[0], args[1], cmd)
		},
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List stored snapshots",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotList(opts, cmd)
		},
	}
	list.Flags().StringVar(&opts.Record, "record", "", "only list snapshots of this record type")
	list.Flags().StringVar(&opts.Label, "label", "", "only list snapshots with this label")
	list.Flags().Int64Var(&opts.Since, "since", 0, "only list snapshots with seq >= since")

	siblings := &cobra.Command{
		Use:           "siblings <schema> <id>",
		Short:         "List snapshots sharing a snapshot's static metadata",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotSiblings(opts, args[0], args[1], cmd)
		},
	}

	cmd.AddCommand(save, show, list, siblings)
	return cmd
}

func (o *SnapshotOptions) dbPath() string {
	if o.DBPath != "" {
		return o.DBPath
	}
	return o.Config.Store.Path
}

// listFilter builds the header filter for the list subcommand.
func (o *SnapshotOptions) listFilter() store.Predicate {
	var filter store.And
	if o.Record != "" {
		filter.Predicates = append(filter.Predicates, store.Equals{Column: store.ColRecordType, Value: o.Record})
	}
	if o.Label != "" {
		filter.Predicates = append(filter.Predicates, store.Equals{Column: store.ColLabel, Value: o.Label})
	}
	if o.Since > 0 {
		filter.Predicates = append(filter.Predicates, store.AtLeast{Column: store.ColSeq, Value: o.Since})
	}
	return filter
}

func openStore(opts *SnapshotOptions, formatter *OutputFormatter, reg *registry.Registry) (*store.Store, error) {
	path := opts.dbPath()
	if path == "" {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "no snapshot database configured (set store.path or --db)", nil)
	}
	formatter.VerboseLog("Opening snapshot store %s", path)

	storeOpts := []store.Option{}
	if reg != nil {
		storeOpts = append(storeOpts, store.WithRegistry(reg))
	}
	st, err := store.Open(path, storeOpts...)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}
	return st, nil
}

func runSnapshotSave(opts *SnapshotOptions, scenarioPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	scenario, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, err.Error(), nil)
	}
	rec, reg, err := harness.Instance(scenario)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
	}

	st, err := openStore(opts, formatter, reg)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.SaveSnapshot(cmd.Context(), rec, opts.Label)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}
	snap, err := st.LoadSnapshot(cmd.Context(), id)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}

	info := toInfo(snap)
	if formatter.IsJSON() {
		return formatter.Success(info)
	}
	fmt.Fprintf(formatter.Writer, "✓ saved %s snapshot %s (seq %d)\n", info.Record, info.ID, info.Seq)
	return nil
}

func runSnapshotShow(opts *SnapshotOptions, schemaPath, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	reg, _, err := LoadRegistry(schemaPath)
	if err != nil {
		return failLoad(formatter, err)
	}
	st, err := openStore(opts, formatter, reg)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := loadSnapshot(cmd, st, formatter, id)
	if err != nil {
		return err
	}

	info := toInfo(snap)
	info.Value = ir.Describe(snap.Record)
	if formatter.IsJSON() {
		return formatter.Success(info)
	}
	formatter.Table([]string{"ID", "SEQ", "RECORD", "LABEL"}, [][]string{infoRow(info)})
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintln(formatter.Writer, info.Value)
	return nil
}

func runSnapshotList(opts *SnapshotOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openStore(opts, formatter, nil)
	if err != nil {
		return err
	}
	defer st.Close()

	snaps, err := st.Search(cmd.Context(), opts.listFilter())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}
	return outputSnapshots(formatter, snaps)
}

func runSnapshotSiblings(opts *SnapshotOptions, schemaPath, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	reg, _, err := LoadRegistry(schemaPath)
	if err != nil {
		return failLoad(formatter, err)
	}
	st, err := openStore(opts, formatter, reg)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := loadSnapshot(cmd, st, formatter, id)
	if err != nil {
		return err
	}
	snaps, err := st.FindByMetadataKey(cmd.Context(), snap.MetadataKey)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}
	return outputSnapshots(formatter, snaps)
}

func loadSnapshot(cmd *cobra.Command, st *store.Store, formatter *OutputFormatter, id string) (store.Snapshot, error) {
	snap, err := st.LoadSnapshot(cmd.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return snap, formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("snapshot %s not found", id), nil)
	case err != nil:
		return snap, formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}
	return snap, nil
}

func outputSnapshots(formatter *OutputFormatter, snaps []store.Snapshot) error {
	infos := make([]SnapshotInfo, len(snaps))
	for i, s := range snaps {
		infos[i] = toInfo(s)
	}
	if formatter.IsJSON() {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "No snapshots found.")
		return nil
	}
	rows := make([][]string, len(infos))
	for i, info := range infos {
		rows[i] = infoRow(info)
	}
	formatter.Table([]string{"ID", "SEQ", "RECORD", "LABEL"}, rows)
	return nil
}

func toInfo(s store.Snapshot) SnapshotInfo {
	return SnapshotInfo{
		ID:          s.ID,
		Seq:         s.Seq,
		Record:      s.RecordType,
		MetadataKey: s.MetadataKey,
		ContentHash: s.ContentHash,
		Label:       s.Label,
	}
}

func infoRow(info SnapshotInfo) []string {
	return []string{info.ID, strconv.FormatInt(info.Seq, 10), info.Record, info.Label}
}
